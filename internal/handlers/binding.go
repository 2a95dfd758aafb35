package handlers

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// bindBody decodes the request body into obj, accepting either the flat
// object or the object nested under key (e.g. {"entry": {...}}), then runs
// the binding validation tags.
func bindBody(c *gin.Context, key string, obj any) error {
	if err := bindNestedOrFlat(c, key, obj); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}

// bindNestedOrFlat binds the object under key when present, the whole body otherwise
func bindNestedOrFlat(c *gin.Context, key string, obj any) error {
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, _ = io.ReadAll(c.Request.Body)
	}
	// Restore body for subsequent reads
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &nested); err == nil {
		if val, ok := nested[key]; ok {
			return json.Unmarshal(val, obj)
		}
	}

	return json.Unmarshal(bodyBytes, obj)
}
