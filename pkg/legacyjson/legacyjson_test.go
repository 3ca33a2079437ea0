package legacyjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

type payload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func TestDecodeStrict(t *testing.T) {
	var p payload
	err := DecodeString(`{"success":true}`, &p)
	require.NoError(t, err)
	assert.True(t, p.Success)
}

func TestDecodeWithLeadingNotice(t *testing.T) {
	var p payload
	raw := `<br />Notice: Undefined index in request.php on line 42{"success":false,"error":"missing student"}`
	err := DecodeString(raw, &p)
	require.NoError(t, err)
	assert.False(t, p.Success)
	assert.Equal(t, "missing student", p.Error)
}

func TestDecodeWithTrailingNoise(t *testing.T) {
	var p payload
	err := DecodeString(`{"success":true} deprecated call warning`, &p)
	require.NoError(t, err)
	assert.True(t, p.Success)
}

func TestDecodeNoObject(t *testing.T) {
	var p payload
	err := DecodeString(`fatal error, nothing useful here`, &p)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidResponseFormat.Code, appErr.Code)
	assert.Equal(t, "Invalid response format", appErr.Message)
}

func TestDecodeUnrecoverableObject(t *testing.T) {
	var p payload
	err := DecodeString(`notice {"success":tru} notice`, &p)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidResponseFormat.Code, appErrors.FromError(err).Code)
}
