package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxItemBody = 1 << 20

const (
	msgRequired       = "Nombre y cantidad son requeridos"
	msgBadQuantity    = "La cantidad debe ser un número entero"
	msgBadPrice       = "El precio debe ser un número"
	msgInvalidPayload = "Datos del item inválidos"
)

var errBadJSON = errors.New("bad json")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Numbers may arrive as JSON numbers or as numeric strings, as HTML forms
// send them. Keys other than these are ignored.
type itemRequest struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	Quantity    numberField `json:"quantity"`
	Price       numberField `json:"price"`
}

type itemInput struct {
	Name        string `validate:"required"`
	Description string
	Quantity    int     `validate:"gte=-2147483648,lte=2147483647"`
	Price       float64
}

func (in itemInput) toItem(id string) Item {
	return Item{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Quantity:    in.Quantity,
		Price:       in.Price,
	}
}

// null and an absent key both leave set false.
type numberField struct {
	raw string
	set bool
}

func (n *numberField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*n = numberField{}
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numberField{raw: strings.TrimSpace(s), set: true}
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = numberField{raw: num.String(), set: true}
	return nil
}

func (n numberField) present() bool { return n.set && n.raw != "" }

var validate = validator.New(validator.WithRequiredStructEnabled())

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (itemRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxItemBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	var req itemRequest
	if err := dec.Decode(&req); err != nil {
		return itemRequest{}, errors.Join(errBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return itemRequest{}, errors.Join(errBadJSON, errors.New("extra data after json object"))
	}

	return req, nil
}

func parseItemRequest(req itemRequest) (itemInput, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || !req.Quantity.present() {
		return itemInput{}, &ValidationError{Message: msgRequired}
	}

	qty, err := parseQuantity(req.Quantity.raw)
	if err != nil {
		return itemInput{}, &ValidationError{Field: "quantity", Message: msgBadQuantity}
	}

	var price float64
	if req.Price.present() {
		price, err = strconv.ParseFloat(req.Price.raw, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return itemInput{}, &ValidationError{Field: "price", Message: msgBadPrice}
		}
	}

	in := itemInput{
		Name:     name,
		Quantity: qty,
		Price:    price,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}

	if err := validate.Struct(in); err != nil {
		return itemInput{}, translateValidation(err)
	}
	return in, nil
}

// parseQuantity accepts integers and integral decimals such as "5.0", both
// limited to the int32 range of the quantity column.
func parseQuantity(raw string) (int, error) {
	if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return int(n), nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, strconv.ErrRange
	}
	return int(f), nil
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: msgInvalidPayload}
	}

	switch verrs[0].Field() {
	case "Name":
		return &ValidationError{Field: "name", Message: msgRequired}
	case "Quantity":
		return &ValidationError{Field: "quantity", Message: msgBadQuantity}
	default:
		return &ValidationError{Message: msgInvalidPayload}
	}
}
