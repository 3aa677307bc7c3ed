package inventory

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func parseJSON(t *testing.T, body string) (itemInput, error) {
	t.Helper()

	var req itemRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	return parseItemRequest(req)
}

func TestParseItemRequest_Accepts(t *testing.T) {
	cases := []struct {
		name string
		body string
		want itemInput
	}{
		{"numbers", `{"name":"Webcam","quantity":5,"price":19.5}`, itemInput{Name: "Webcam", Quantity: 5, Price: 19.5}},
		{"numeric strings", `{"name":"Webcam","quantity":"20","price":"1.25"}`, itemInput{Name: "Webcam", Quantity: 20, Price: 1.25}},
		{"padded strings", `{"name":" Webcam ","quantity":" 7 "}`, itemInput{Name: "Webcam", Quantity: 7}},
		{"integral decimal quantity", `{"name":"A","quantity":3.0}`, itemInput{Name: "A", Quantity: 3}},
		{"price defaults to zero", `{"name":"A","quantity":1}`, itemInput{Name: "A", Quantity: 1}},
		{"empty price string", `{"name":"A","quantity":1,"price":""}`, itemInput{Name: "A", Quantity: 1}},
		{"null price", `{"name":"A","quantity":1,"price":null}`, itemInput{Name: "A", Quantity: 1}},
		{"zero quantity", `{"name":"A","quantity":0}`, itemInput{Name: "A"}},
		{"description kept", `{"name":"A","quantity":1,"description":"  con espacios "}`, itemInput{Name: "A", Quantity: 1, Description: "  con espacios "}},
		{"negative quantity", `{"name":"A","quantity":-2}`, itemInput{Name: "A", Quantity: -2}},
		{"negative price", `{"name":"A","quantity":1,"price":-0.5}`, itemInput{Name: "A", Quantity: 1, Price: -0.5}},
		{"max int32 quantity", `{"name":"A","quantity":2147483647}`, itemInput{Name: "A", Quantity: 2147483647}},
		{"max int32 quantity as decimal", `{"name":"A","quantity":"2147483647.0"}`, itemInput{Name: "A", Quantity: 2147483647}},
		{"min int32 quantity", `{"name":"A","quantity":-2147483648}`, itemInput{Name: "A", Quantity: -2147483648}},
		{"long name", `{"name":"` + strings.Repeat("x", 500) + `","quantity":1}`, itemInput{Name: strings.Repeat("x", 500), Quantity: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseJSON(t, tc.body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestParseItemRequest_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{"no name", `{"quantity":1}`, "", msgRequired},
		{"blank name", `{"name":"   ","quantity":1}`, "", msgRequired},
		{"no quantity", `{"name":"A"}`, "", msgRequired},
		{"empty quantity string", `{"name":"A","quantity":""}`, "", msgRequired},
		{"word quantity", `{"name":"A","quantity":"diez"}`, "quantity", msgBadQuantity},
		{"fractional quantity", `{"name":"A","quantity":"1.5"}`, "quantity", msgBadQuantity},
		{"huge quantity", `{"name":"A","quantity":1e12}`, "quantity", msgBadQuantity},
		{"word price", `{"name":"A","quantity":1,"price":"gratis"}`, "price", msgBadPrice},
		{"nan price", `{"name":"A","quantity":1,"price":"NaN"}`, "price", msgBadPrice},
		{"inf price", `{"name":"A","quantity":1,"price":"Inf"}`, "price", msgBadPrice},
		{"quantity over int32", `{"name":"A","quantity":3000000000}`, "quantity", msgBadQuantity},
		{"quantity over int32 as decimal", `{"name":"A","quantity":3000000000.0}`, "quantity", msgBadQuantity},
		{"quantity over int32 as string", `{"name":"A","quantity":"2147483648"}`, "quantity", msgBadQuantity},
		{"quantity under int32", `{"name":"A","quantity":-2147483649}`, "quantity", msgBadQuantity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseJSON(t, tc.body)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err=%v, want *ValidationError", err)
			}
			if verr.Field != tc.field || verr.Message != tc.message {
				t.Fatalf("got field=%q message=%q, want field=%q message=%q", verr.Field, verr.Message, tc.field, tc.message)
			}
		})
	}
}

func TestNumberField_RejectsNonScalars(t *testing.T) {
	var req itemRequest
	err := json.Unmarshal([]byte(`{"name":"A","quantity":[1]}`), &req)
	if err == nil {
		t.Fatalf("expected error for array quantity")
	}
}
