package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	doc, err := ParseQuery(`query Me { me { id } }`)
	require.NoError(t, err)
	require.Len(t, doc.Operations, 1)
	assert.Equal(t, Query, doc.Operations[0].Operation)
	assert.Equal(t, "Me", doc.Operations[0].Name)
}

func TestParseQuery_Errors(t *testing.T) {
	_, err := ParseQuery(`{ me `)
	var ge *Error
	require.ErrorAs(t, err, &ge)
	require.NotEmpty(t, ge.Locations)
	assert.Equal(t, 1, ge.Locations[0].Line)

	_, err = ParseQuery(`fragment F on Query { me }`)
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "document contains no operations", ge.Message)
}
