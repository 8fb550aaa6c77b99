package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ElementType tags a canvas element. Types outside the known set are stored
// as-is so newer clients can add shapes without a server release.
type ElementType string

const (
	ElementRectangle ElementType = "rectangle"
	ElementEllipse   ElementType = "ellipse"
	ElementLine      ElementType = "line"
	ElementArrow     ElementType = "arrow"
	ElementText      ElementType = "text"
	ElementSticky    ElementType = "sticky"
	ElementFreehand  ElementType = "freehand"
	ElementImage     ElementType = "image"
)

func (t ElementType) Known() bool {
	switch t {
	case ElementRectangle, ElementEllipse, ElementLine, ElementArrow,
		ElementText, ElementSticky, ElementFreehand, ElementImage:
		return true
	default:
		return false
	}
}

var ErrElementTypeRequired = errors.New("element type is required")

// Element is one item of canvas content. Type is the tag; everything else the
// client sends lives in Payload and is returned untouched. On the wire the
// payload keys sit next to the reserved ones.
type Element struct {
	ID string `bson:"id,omitempty"`
	// NumericID marks an id the client sent as a JSON number; it is echoed
	// back as a number.
	NumericID bool                   `bson:"numericId,omitempty"`
	Type      ElementType            `bson:"type"`
	Payload   map[string]interface{} `bson:"payload,omitempty"`
	CreatedBy *bson.ObjectID         `bson:"createdBy,omitempty"`
	CreatedAt time.Time              `bson:"createdAt"`
	UpdatedAt *time.Time             `bson:"updatedAt,omitempty"`

	// Creator is filled in when the element is rendered with its author.
	Creator *UserSummary `bson:"-"`
}

var reservedElementKeys = map[string]struct{}{
	"id":        {},
	"_id":       {},
	"type":      {},
	"createdBy": {},
	"createdAt": {},
	"updatedAt": {},
}

// LastChange is updatedAt, or createdAt for elements never replaced.
func (e *Element) LastChange() time.Time {
	if e.UpdatedAt != nil && !e.UpdatedAt.IsZero() {
		return *e.UpdatedAt
	}
	return e.CreatedAt
}

func (e Element) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Payload)+6)
	for k, v := range e.Payload {
		out[k] = v
	}
	if e.ID != "" {
		if e.NumericID {
			out["id"] = json.Number(e.ID)
		} else {
			out["id"] = e.ID
		}
	}
	out["type"] = e.Type
	switch {
	case e.Creator != nil:
		out["createdBy"] = e.Creator
	case e.CreatedBy != nil:
		out["createdBy"] = e.CreatedBy.Hex()
	}
	if !e.CreatedAt.IsZero() {
		out["createdAt"] = e.CreatedAt
	}
	if e.UpdatedAt != nil {
		out["updatedAt"] = *e.UpdatedAt
	}
	return json.Marshal(out)
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("element must be an object: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("element must be an object")
	}

	*e = Element{}

	typ, _ := raw["type"].(string)
	e.Type = ElementType(strings.TrimSpace(typ))

	switch id := raw["id"].(type) {
	case string:
		e.ID = id
	case float64:
		e.ID = strconv.FormatFloat(id, 'f', -1, 64)
		e.NumericID = true
	}
	if e.ID == "" {
		if id, ok := raw["_id"].(string); ok {
			e.ID = id
		}
	}

	if creator, ok := parseCreatedBy(raw["createdBy"]); ok {
		e.CreatedBy = &creator
	}

	if createdAt, ok := raw["createdAt"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = parsed
		}
	}
	if updatedAt, ok := raw["updatedAt"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			e.UpdatedAt = &parsed
		}
	}

	for k, v := range raw {
		if _, reserved := reservedElementKeys[k]; reserved {
			continue
		}
		if e.Payload == nil {
			e.Payload = make(map[string]interface{}, len(raw))
		}
		e.Payload[k] = v
	}

	return nil
}

// Validate checks the element tag.
func (e *Element) Validate() error {
	if e.Type == "" {
		return ErrElementTypeRequired
	}
	return nil
}

// parseCreatedBy accepts either a hex id or a populated user object.
func parseCreatedBy(value interface{}) (bson.ObjectID, bool) {
	switch v := value.(type) {
	case string:
		id, err := bson.ObjectIDFromHex(v)
		return id, err == nil
	case map[string]interface{}:
		for _, key := range []string{"id", "_id"} {
			if s, ok := v[key].(string); ok {
				if id, err := bson.ObjectIDFromHex(s); err == nil {
					return id, true
				}
			}
		}
	}
	return bson.ObjectID{}, false
}
