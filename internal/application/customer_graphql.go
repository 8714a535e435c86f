package application

import (
	"fmt"
	"strings"

	"shopify-customer-sync/internal/domain"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// CustomerListPageSize is the fixed page read by the customer listing; there is no pagination loop
const CustomerListPageSize = 50

// CustomerPullPageSize is the fixed page read by the shop-to-shop pull
const CustomerPullPageSize = 10

const customerListQuery = `
{
  customers(first: 50) {
    edges {
      node {
        id
        firstName
        lastName
        email
        phone
        createdAt
        addresses {
          address1
          city
          country
          zip
        }
      }
    }
  }
}
`

const customerPullQuery = `
{
  customers(first: 10) {
    edges {
      node {
        email
        firstName
        lastName
        phone
      }
    }
  }
}
`

const customerCreateMutation = `
mutation customerCreate($input: CustomerInput!) {
  customerCreate(input: $input) {
    customer {
      id
      email
    }
    userErrors {
      field
      message
    }
  }
}
`

const shopQuery = `
{
  shop {
    name
  }
}
`

// AddressInput is the MailingAddressInput sent to customerCreate
type AddressInput struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
}

// CustomerInput is the CustomerInput sent to customerCreate
type CustomerInput struct {
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Addresses []AddressInput `json:"addresses"`
}

// BuildCustomerInput maps a transfer record onto the mutation input.
// Addresses is never nil so an empty list is sent as [] rather than null.
func BuildCustomerInput(customer domain.Customer) CustomerInput {
	addresses := make([]AddressInput, 0, len(customer.Addresses))
	for _, a := range customer.Addresses {
		country := a.Country
		if country == "" {
			country = domain.DefaultCountry
		}
		addresses = append(addresses, AddressInput{
			Address1: a.Address1,
			City:     a.City,
			Country:  country,
			Zip:      a.Zip,
		})
	}

	return CustomerInput{
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Addresses: addresses,
	}
}

// CustomerBatch is a single multi-alias mutation creating several customers
type CustomerBatch struct {
	Query     string
	Variables map[string]interface{}
	Aliases   []string
}

// BuildCustomerBatch builds one mutation with an aliased customerCreate per customer (c0..cN)
// bound to $input0..$inputN. The document is parsed locally before it is returned.
func BuildCustomerBatch(customers []domain.Customer) (*CustomerBatch, error) {
	if len(customers) == 0 {
		return nil, domain.ValidationFailed("customers", "No customers selected.")
	}

	definitions := make([]string, 0, len(customers))
	fields := make([]string, 0, len(customers))
	aliases := make([]string, 0, len(customers))
	variables := make(map[string]interface{}, len(customers))

	for i, customer := range customers {
		alias := fmt.Sprintf("c%d", i)
		variable := fmt.Sprintf("input%d", i)

		definitions = append(definitions, fmt.Sprintf("$%s: CustomerInput!", variable))
		fields = append(fields, fmt.Sprintf(`  %s: customerCreate(input: $%s) {
    customer { id email }
    userErrors { field message }
  }`, alias, variable))
		aliases = append(aliases, alias)
		variables[variable] = BuildCustomerInput(customer)
	}

	query := fmt.Sprintf("mutation(%s) {\n%s\n}\n", strings.Join(definitions, ", "), strings.Join(fields, "\n"))

	if err := checkBatchDocument(query, len(aliases)); err != nil {
		return nil, err
	}

	return &CustomerBatch{
		Query:     query,
		Variables: variables,
		Aliases:   aliases,
	}, nil
}

func checkBatchDocument(query string, expectedFields int) error {
	doc, err := parser.ParseQuery(&ast.Source{Name: "customerBatch", Input: query})
	if err != nil {
		return fmt.Errorf("failed to parse generated mutation: %w", err)
	}
	if len(doc.Operations) != 1 || doc.Operations[0].Operation != ast.Mutation {
		return fmt.Errorf("generated document must contain exactly one mutation")
	}
	if got := len(doc.Operations[0].SelectionSet); got != expectedFields {
		return fmt.Errorf("generated mutation has %d fields, expected %d", got, expectedFields)
	}
	return nil
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type customerCreatePayload struct {
	Customer *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"customer"`
	UserErrors []userError `json:"userErrors"`
}

type customerCreateResponse struct {
	CustomerCreate *customerCreatePayload `json:"customerCreate"`
}

type customerNode struct {
	ID        string           `json:"id"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	CreatedAt string           `json:"createdAt"`
	Addresses []domain.Address `json:"addresses"`
}

type customersResponse struct {
	Customers struct {
		Edges []struct {
			Node customerNode `json:"node"`
		} `json:"edges"`
	} `json:"customers"`
}

type shopResponse struct {
	Shop *struct {
		Name string `json:"name"`
	} `json:"shop"`
}

// classify turns one customerCreate payload into a SyncResult
func classify(email string, payload *customerCreatePayload) domain.SyncResult {
	if payload == nil {
		return domain.SyncResult{Email: email, Success: false, Error: "No result returned for customer."}
	}
	if len(payload.UserErrors) > 0 {
		messages := make([]string, 0, len(payload.UserErrors))
		for _, e := range payload.UserErrors {
			messages = append(messages, e.Message)
		}
		return domain.SyncResult{Email: email, Success: false, Error: strings.Join(messages, ", ")}
	}
	return domain.SyncResult{Email: email, Success: true}
}

func (n customerNode) toDomain() domain.Customer {
	addresses := n.Addresses
	if addresses == nil {
		addresses = []domain.Address{}
	}
	return domain.Customer{
		ID:        n.ID,
		FirstName: n.FirstName,
		LastName:  n.LastName,
		Email:     n.Email,
		Phone:     n.Phone,
		CreatedAt: n.CreatedAt,
		Addresses: addresses,
	}
}
