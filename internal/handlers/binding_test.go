package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		key         string
		body        string
		expected    CreateMemberRequest
		expectError bool
	}{
		{
			name:     "Nested Structure",
			key:      "member",
			body:     `{"member": {"member_code": "M001", "full_name": "Asha"}}`,
			expected: CreateMemberRequest{MemberCode: "M001", FullName: "Asha"},
		},
		{
			name:     "Flat Structure",
			key:      "member",
			body:     `{"member_code": "M002", "full_name": "Ravi"}`,
			expected: CreateMemberRequest{MemberCode: "M002", FullName: "Ravi"},
		},
		{
			name:     "Missing Key Falls Back To Flat",
			key:      "member",
			body:     `{"other": "value", "member_code": "M003", "full_name": "Meena"}`,
			expected: CreateMemberRequest{MemberCode: "M003", FullName: "Meena"},
		},
		{
			name:        "Invalid Type",
			key:         "member",
			body:        `{"member_code": 42}`,
			expectError: true,
		},
		{
			name:        "Nested but Invalid Content",
			key:         "member",
			body:        `{"member": {"member_code": ["M004"]}}`,
			expectError: true,
		},
		{
			name:        "Nested Key Present but Invalid Type",
			key:         "member",
			body:        `{"member": "some string"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result CreateMemberRequest
			err := bindNestedOrFlat(c, tt.key, &result)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestBindBodyRunsValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"entry": {"kind": "BONUS"}}`))

	var req CreateEntryRequest
	err := bindBody(c, "entry", &req)
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Kind", verrs[0].Field())
	assert.Equal(t, "oneof", verrs[0].Tag())
}
