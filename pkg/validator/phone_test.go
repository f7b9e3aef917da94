package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0712345678", "0712345678", "Standard format"},
		{"071 234 5678", "0712345678", "With spaces"},
		{"071-234-5678", "0712345678", "With dashes"},
		{"071.234.5678", "0712345678", "With dots"},
		{"(071) 234 5678", "0712345678", "With parentheses"},
		{"0722345678", "0722345678", "Safaricom 072"},
		{"0733345678", "0733345678", "Airtel 073"},
		{"0110345678", "0110345678", "Newer 011 range"},
		{"0100345678", "0100345678", "Newer 010 range"},
		{"+254712345678", "0712345678", "E.164 with plus"},
		{"254712345678", "0712345678", "Country code without plus"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"123", ErrInvalidLength, "Too short"},
		{"07123456789", ErrInvalidLength, "Too long"},
		{"0812345678", ErrInvalidPrefix, "Invalid prefix 08"},
		{"0212345678", ErrInvalidPrefix, "Invalid prefix 02"},
		{"0912345678", ErrInvalidPrefix, "Invalid prefix 09"},
		{"071234567a", ErrInvalidFormat, "Contains letters"},
		{"071-234-567a", ErrInvalidFormat, "Contains letters with dashes"},
		{"071 234 567!", ErrInvalidFormat, "Contains special characters"},
		{"1234567890", ErrInvalidPrefix, "Valid length but invalid prefix"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.Error(t, err)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestSanitize(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
		name     string
	}{
		{"0712345678", "0712345678", "Already clean"},
		{"071 234 5678", "0712345678", "With spaces"},
		{"071-234-5678", "0712345678", "With dashes"},
		{"071.234.5678", "0712345678", "With dots"},
		{"(071) 234 5678", "0712345678", "With parentheses"},
		{"+254712345678", "0712345678", "With country code and plus"},
		{"254712345678", "0712345678", "With country code"},
		{"+254 712 345 678", "0712345678", "Spaced international form"},
		{"2547123", "2547123", "Country code prefix but wrong length"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := validator.Sanitize(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestIsValidPrefix(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsValidPrefix("0712345678"))
	assert.True(t, validator.IsValidPrefix("0110345678"))
	assert.False(t, validator.IsValidPrefix("0812345678"))
	assert.False(t, validator.IsValidPrefix("0"))
	assert.False(t, validator.IsValidPrefix(""))
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator()

	t.Run("Valid number", func(t *testing.T) {
		formatted, err := validator.Format("0712345678")
		require.NoError(t, err)
		assert.Equal(t, "0712 345 678", formatted)
	})

	t.Run("International input", func(t *testing.T) {
		formatted, err := validator.Format("+254712345678")
		require.NoError(t, err)
		assert.Equal(t, "0712 345 678", formatted)
	})

	t.Run("Invalid number", func(t *testing.T) {
		_, err := validator.Format("0812345678")
		assert.Error(t, err)
	})
}

func TestToE164(t *testing.T) {
	validator := NewPhoneValidator()

	t.Run("Local form", func(t *testing.T) {
		e164, err := validator.ToE164("0712345678")
		require.NoError(t, err)
		assert.Equal(t, "+254712345678", e164)
	})

	t.Run("Already international", func(t *testing.T) {
		e164, err := validator.ToE164("+254712345678")
		require.NoError(t, err)
		assert.Equal(t, "+254712345678", e164)
	})

	t.Run("Invalid number", func(t *testing.T) {
		_, err := validator.ToE164("12345")
		assert.Error(t, err)
	})
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsValid("0712345678"))
	assert.True(t, validator.IsValid("+254101234567"))
	assert.False(t, validator.IsValid(""))
	assert.False(t, validator.IsValid("0812345678"))
}
