package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator_CompilesEverySchema(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	for _, name := range []Schema{SchemaListing, SchemaAgencyCreate, SchemaAgencyUpdate, SchemaRegister, SchemaLogin} {
		assert.Contains(t, v.schemas, name)
	}
}

func TestValidate_Listing(t *testing.T) {
	v := MustNewValidator()

	ok := `{"title":"Loft","city":"Nice","country":"FR","price":"250000","type":"apartment","imageUrls":["a"]}`
	assert.NoError(t, v.Validate(SchemaListing, []byte(ok)))

	nullable := `{"title":"Loft","city":"Nice","country":"FR","price":1,"type":"house","description":null,"imageUrls":null}`
	assert.NoError(t, v.Validate(SchemaListing, []byte(nullable)))

	err := v.Validate(SchemaListing, []byte(`{"title":"Loft","city":"Nice","country":"FR","price":true,"type":"house"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Fields)
	assert.Equal(t, "price", verr.Fields[0].Field)
	assert.NotNil(t, verr.Details())
}

func TestValidate_MissingRequired(t *testing.T) {
	v := MustNewValidator()

	err := v.Validate(SchemaLogin, []byte(`{"email":"a@b.c"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payload failed validation", verr.Error())
}

func TestValidate_InvalidJSON(t *testing.T) {
	v := MustNewValidator()

	err := v.Validate(SchemaAgencyCreate, []byte(`{"name":`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid JSON payload", verr.Message)
	assert.Nil(t, verr.Details())
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := MustNewValidator()
	assert.Error(t, v.Validate(Schema("nope"), []byte(`{}`)))
}
