package application

import (
	"encoding/json"
	"errors"
	"testing"

	"shopify-customer-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func TestBuildCustomerInput_EmptyAddressesStayEmpty(t *testing.T) {
	input := BuildCustomerInput(domain.Customer{
		FirstName: "A",
		LastName:  "B",
		Email:     "a@b.com",
		Addresses: []domain.Address{},
	})

	raw, err := json.Marshal(input)
	require.NoError(t, err)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &sent))

	assert.Equal(t, "A", sent["firstName"])
	assert.Equal(t, "B", sent["lastName"])
	assert.Equal(t, "a@b.com", sent["email"])
	assert.Equal(t, "", sent["phone"])
	assert.Equal(t, []interface{}{}, sent["addresses"])
	assert.NotContains(t, string(raw), "country")
}

func TestBuildCustomerInput_NilAddressesSentAsEmptyList(t *testing.T) {
	raw, err := json.Marshal(BuildCustomerInput(domain.Customer{Email: "x@y.com"}))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"addresses":[]`)
}

func TestBuildCustomerInput_DefaultCountry(t *testing.T) {
	input := BuildCustomerInput(domain.Customer{
		Email: "a@b.com",
		Addresses: []domain.Address{
			{Address1: "1 Main St", City: "Springfield", Zip: "12345"},
			{Address1: "2 Rue", City: "Paris", Country: "France", Zip: "75001"},
		},
	})

	require.Len(t, input.Addresses, 2)
	assert.Equal(t, "United States", input.Addresses[0].Country)
	assert.Equal(t, "Springfield", input.Addresses[0].City)
	assert.Equal(t, "France", input.Addresses[1].Country)
}

func TestBuildCustomerBatch(t *testing.T) {
	customers := []domain.Customer{
		{Email: "one@example.com"},
		{Email: "two@example.com"},
		{Email: "three@example.com"},
	}

	batch, err := BuildCustomerBatch(customers)
	require.NoError(t, err)

	assert.Equal(t, []string{"c0", "c1", "c2"}, batch.Aliases)
	assert.Len(t, batch.Variables, 3)
	assert.Equal(t, "two@example.com", inputOf(t, batch.Variables, "input1")["email"])

	doc, perr := parser.ParseQuery(&ast.Source{Input: batch.Query})
	require.Nil(t, perr)
	require.Len(t, doc.Operations, 1)

	op := doc.Operations[0]
	assert.Equal(t, ast.Mutation, op.Operation)
	require.Len(t, op.VariableDefinitions, 3)
	for i, def := range op.VariableDefinitions {
		assert.Equal(t, "CustomerInput", def.Type.NamedType)
		assert.True(t, def.Type.NonNull)
		assert.Equal(t, batch.Aliases[i], "c"+def.Variable[len("input"):])
	}

	require.Len(t, op.SelectionSet, 3)
	for i, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		require.True(t, ok)
		assert.Equal(t, "customerCreate", field.Name)
		assert.Equal(t, batch.Aliases[i], field.Alias)
		require.Len(t, field.Arguments, 1)
		assert.Equal(t, ast.Variable, field.Arguments[0].Value.Kind)
		assert.Equal(t, "input"+batch.Aliases[i][1:], field.Arguments[0].Value.Raw)
	}
}

func TestBuildCustomerBatch_Empty(t *testing.T) {
	batch, err := BuildCustomerBatch(nil)
	assert.Nil(t, batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, "No customers selected.", err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload *customerCreatePayload
		success bool
		message string
	}{
		{
			name:    "created",
			payload: &customerCreatePayload{},
			success: true,
		},
		{
			name: "user errors joined",
			payload: &customerCreatePayload{UserErrors: []userError{
				{Field: []string{"email"}, Message: "Email is invalid"},
				{Field: []string{"phone"}, Message: "Phone is invalid"},
			}},
			message: "Email is invalid, Phone is invalid",
		},
		{
			name:    "missing payload",
			payload: nil,
			message: "No result returned for customer.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classify("a@b.com", tt.payload)
			assert.Equal(t, "a@b.com", result.Email)
			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, tt.message, result.Error)
		})
	}
}

func TestStaticDocumentsParse(t *testing.T) {
	for name, doc := range map[string]string{
		"list":   customerListQuery,
		"pull":   customerPullQuery,
		"create": customerCreateMutation,
		"shop":   shopQuery,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parser.ParseQuery(&ast.Source{Input: doc})
			assert.Nil(t, err)
		})
	}
}
