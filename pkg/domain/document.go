package domain

import "fmt"

// IDField is the key under which a store keeps the identity it assigns to a document
const IDField = "_id"

// Document represents one schemaless record. Values are JSON-shaped:
// string, float64, bool, nil, map[string]interface{} or []interface{}.
type Document map[string]interface{}

// Collection represents the named bucket documents are written to
type Collection struct {
	Database string `json:"database"`
	Name     string `json:"name"`
}

// NewCollection creates a new collection reference
func NewCollection(database, name string) Collection {
	return Collection{
		Database: database,
		Name:     name,
	}
}

func (c Collection) String() string {
	return c.Database + "." + c.Name
}

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(Normalize(map[string]interface{}(d)).(map[string]interface{}))
}

// Normalize converts a decoded value into the JSON-shaped subset documents use.
// Integer and float32 kinds become float64 and generic maps get string keys.
// Values of any other type are returned unchanged.
func Normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case Document:
		return Normalize(map[string]interface{}(v))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = Normalize(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = Normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	}

	if num, ok := ToFloat64(value); ok {
		return num
	}
	return value
}

// ToFloat64 converts various numeric types to float64 for comparison
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
