package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"cart-service/internal/models"
)

// wirePart is the persisted form of a PartSelection
type wirePart struct {
	ID         string             `json:"id"`
	Price      int64              `json:"price"`
	ExtraPrice int64              `json:"extra_price"`
	Quantity   int                `json:"quantity"`
	Variant    models.VariationID `json:"variant"`
	TotalPrice int64              `json:"total_price"`
}

// wireEntry is the persisted form of an Entry
type wireEntry struct {
	ID    string     `json:"id"`
	Parts []wirePart `json:"parts"`
}

// encode writes the entries as a JSON object keyed by product id, in
// insertion order
func encode(order []models.ProductID, entries map[models.ProductID]*Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, productID := range order {
		entry := entries[productID]
		if i > 0 {
			buf.WriteByte(',')
		}

		key := productID.String()
		keyBytes, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		we := wireEntry{ID: key, Parts: make([]wirePart, 0, len(entry.Parts))}
		for _, p := range entry.Parts {
			we.Parts = append(we.Parts, wirePart{
				ID:         p.PartID.String(),
				Price:      p.UnitPrice,
				ExtraPrice: p.ExtraPrice,
				Quantity:   p.Quantity,
				Variant:    p.VariationID,
				TotalPrice: p.TotalPrice,
			})
		}

		entryBytes, err := json.Marshal(we)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal cart entry %s: %w", key, err)
		}
		buf.Write(entryBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decode parses the persisted mapping, keeping key order. Any shape other
// than the one written by encode fails with *DeserializationError
func decode(data []byte) ([]models.ProductID, map[models.ProductID]*Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, &DeserializationError{Reason: err.Error()}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, &DeserializationError{Reason: "expected an object of products"}
	}

	order := make([]models.ProductID, 0)
	entries := make(map[models.ProductID]*Entry)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, &DeserializationError{Reason: err.Error()}
		}
		key, _ := tok.(string)

		productID, err := parseID(key)
		if err != nil {
			return nil, nil, &DeserializationError{Path: key, Reason: "product key is not a valid id"}
		}
		if _, dup := entries[models.ProductID(productID)]; dup {
			return nil, nil, &DeserializationError{Path: key, Reason: "duplicate product"}
		}

		var we wireEntry
		if err := dec.Decode(&we); err != nil {
			return nil, nil, &DeserializationError{Path: key, Reason: err.Error()}
		}

		entry, err := we.toEntry(key, models.ProductID(productID))
		if err != nil {
			return nil, nil, err
		}

		order = append(order, entry.ProductID)
		entries[entry.ProductID] = entry
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, &DeserializationError{Reason: err.Error()}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, &DeserializationError{Reason: "unexpected data after cart"}
	}

	return order, entries, nil
}

func (we wireEntry) toEntry(key string, productID models.ProductID) (*Entry, error) {
	if we.ID != key {
		return nil, &DeserializationError{Path: key + ".id", Reason: fmt.Sprintf("id %q does not match key", we.ID)}
	}
	if len(we.Parts) == 0 {
		return nil, &DeserializationError{Path: key + ".parts", Reason: "missing or empty"}
	}

	entry := &Entry{
		ProductID: productID,
		Parts:     make([]PartSelection, 0, len(we.Parts)),
	}
	seen := make(map[models.PartID]bool, len(we.Parts))

	for i, p := range we.Parts {
		path := fmt.Sprintf("%s.parts[%d]", key, i)

		partID, err := parseID(p.ID)
		if err != nil {
			return nil, &DeserializationError{Path: path + ".id", Reason: "not a valid id"}
		}
		if seen[models.PartID(partID)] {
			return nil, &DeserializationError{Path: path + ".id", Reason: "duplicate part"}
		}
		seen[models.PartID(partID)] = true

		switch {
		case p.Variant <= 0:
			return nil, &DeserializationError{Path: path + ".variant", Reason: "not a valid id"}
		case p.Price < 0:
			return nil, &DeserializationError{Path: path + ".price", Reason: "must not be negative"}
		case !quantityAllowed(p.Quantity, p.Price):
			return nil, &DeserializationError{Path: path + ".quantity", Reason: fmt.Sprintf("must be between 1 and %d", MaxQuantity)}
		}

		entry.Parts = append(entry.Parts, PartSelection{
			PartID:      models.PartID(partID),
			VariationID: p.Variant,
			Quantity:    p.Quantity,
			UnitPrice:   p.Price,
			ExtraPrice:  p.ExtraPrice,
			TotalPrice:  p.TotalPrice,
		})
	}

	return entry, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive: %d", id)
	}
	return id, nil
}
