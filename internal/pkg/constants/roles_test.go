package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, Admin, NormalizeRole(" admin "))
	assert.Equal(t, Viewer, NormalizeRole("VIEWER"))
	assert.Equal(t, "", NormalizeRole("superadmin"))
}

func TestAllowedRole(t *testing.T) {
	assert.True(t, AllowedRole(ViewData, Viewer))
	assert.False(t, AllowedRole(EditSharings, Viewer))
	assert.True(t, AllowedRole(EditSharings, Manager))
	assert.False(t, AllowedRole(ManageVersions, Manager))
	assert.True(t, AllowedRole(ManageVersions, Admin))
	assert.True(t, AllowedRole(ManageDocuments, Manager))
	assert.False(t, AllowedRole("unknown", Admin))
}
