package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/policy"
)

func TestRegistry_Definition(t *testing.T) {
	t.Parallel()

	registry := metadata.NewRegistry(metadata.ContextDefinition{
		Descriptor: metadata.Descriptor{ID: "custom"},
		Base:       metadata.NewProfile("custom"),
	})

	def, ok := registry.Definition("custom")
	require.True(t, ok)
	assert.Equal(t, "custom", def.Descriptor.ID)

	_, ok = registry.Definition("missing")
	assert.False(t, ok)
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	registry := metadata.DefaultRegistry(policy.DefaultReserved())

	t.Run("Should register the standard contexts in sorted order", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []string{
			metadata.ContextAccountUpdate,
			metadata.ContextAdminEdit,
			metadata.ContextContactUpdate,
			metadata.ContextIDPReview,
			metadata.ContextRegistration,
		}, registry.ContextIDs())
	})

	t.Run("Should carry the four reserved attributes in full contexts", func(t *testing.T) {
		t.Parallel()

		for _, id := range []string{
			metadata.ContextRegistration,
			metadata.ContextAccountUpdate,
			metadata.ContextAdminEdit,
			metadata.ContextIDPReview,
		} {
			def, ok := registry.Definition(id)
			require.True(t, ok, id)
			require.Len(t, def.Base.Attributes, 4, id)
			assert.Equal(t, policy.AttributeUsername, def.Base.Attributes[0].Name, id)
			assert.Equal(t, policy.AttributeEmail, def.Base.Attributes[1].Name, id)
			assert.Equal(t, policy.AttributeFirstName, def.Base.Attributes[2].Name, id)
			assert.Equal(t, policy.AttributeLastName, def.Base.Attributes[3].Name, id)
		}
	})

	t.Run("Should restrict the contact-update context to the contact address", func(t *testing.T) {
		t.Parallel()

		def, ok := registry.Definition(metadata.ContextContactUpdate)
		require.True(t, ok)

		require.Len(t, def.Base.Attributes, 1)
		assert.Equal(t, policy.AttributeEmail, def.Base.Attributes[0].Name)
		assert.True(t, def.Descriptor.IsAttributeSupported(policy.AttributeEmail))
		assert.False(t, def.Descriptor.IsAttributeSupported(policy.AttributeUsername))
		assert.False(t, def.Descriptor.IsAttributeSupported("nickname"))
	})

	t.Run("Should mark auth-flow capability per context", func(t *testing.T) {
		t.Parallel()

		authFlow := map[string]bool{
			metadata.ContextRegistration:  true,
			metadata.ContextAccountUpdate: false,
			metadata.ContextAdminEdit:     false,
			metadata.ContextIDPReview:     true,
			metadata.ContextContactUpdate: true,
		}
		for id, want := range authFlow {
			def, ok := registry.Definition(id)
			require.True(t, ok, id)
			assert.Equal(t, want, def.Descriptor.AuthFlow, id)
		}
	})

	t.Run("Should assign the admin context role only to admin-edit", func(t *testing.T) {
		t.Parallel()

		for _, id := range registry.ContextIDs() {
			def, _ := registry.Definition(id)
			want := "user"
			if id == metadata.ContextAdminEdit {
				want = "admin"
			}
			assert.Equal(t, want, def.Descriptor.ContextRole, id)
		}
	})

	t.Run("Should attach the default validators to base attributes", func(t *testing.T) {
		t.Parallel()

		def, _ := registry.Definition(metadata.ContextRegistration)

		username := def.Base.Attribute(policy.AttributeUsername)
		require.Len(t, username, 1)
		ids := make([]string, 0, len(username[0].Validators))
		for _, ref := range username[0].Validators {
			ids = append(ids, ref.ID)
		}
		assert.ElementsMatch(t, []string{policy.ValidatorLength, policy.ValidatorUsernameProhibited}, ids)

		email := def.Base.Attribute(policy.AttributeEmail)
		require.Len(t, email, 1)
		ids = ids[:0]
		for _, ref := range email[0].Validators {
			ids = append(ids, ref.ID)
		}
		assert.ElementsMatch(t, []string{policy.ValidatorEmailFormat, policy.ValidatorLength}, ids)
	})
}
