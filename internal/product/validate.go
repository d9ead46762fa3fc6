package product

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"shopfront/webshop/internal/validation"
)

const (
	minTitleLength       = 3
	minDescriptionLength = 5
	maxDescriptionLength = 400

	msgNoImage     = "Attached file is not an image."
	msgTitle       = "Title must be at least 3 characters long."
	msgPrice       = "Price must be a number."
	msgDescription = "Description must be between 5 and 400 characters long."
)

var (
	errInvalidTitle       = errors.New("invalid title")
	errInvalidPrice       = errors.New("invalid price")
	errInvalidDescription = errors.New("invalid description")
)

type fields struct {
	title       string
	price       float64
	description string
}

// parseInput trims and checks every field, collecting all failures. When
// requireImage is set a missing image is reported first.
func parseInput(in Input, requireImage bool, imageURL string) (fields, error) {
	var verr validation.Errors
	if requireImage && imageURL == "" {
		verr.Add("image", msgNoImage, ErrNoImage)
	}

	f := fields{
		title:       strings.TrimSpace(in.Title),
		description: strings.TrimSpace(in.Description),
	}
	if utf8.RuneCountInString(f.title) < minTitleLength {
		verr.Add("title", msgTitle, errInvalidTitle)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		verr.Add("price", msgPrice, errInvalidPrice)
	}
	f.price = price
	if n := utf8.RuneCountInString(f.description); n < minDescriptionLength || n > maxDescriptionLength {
		verr.Add("description", msgDescription, errInvalidDescription)
	}
	return f, verr.Err()
}
