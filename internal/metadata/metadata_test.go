package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/predicate"
)

func TestNewAttribute(t *testing.T) {
	t.Parallel()

	attr := metadata.NewAttribute("nickname")

	assert.Equal(t, "nickname", attr.Name)
	assert.Equal(t, predicate.AlwaysFalse, attr.Required)
	assert.Equal(t, predicate.AlwaysFalse, attr.ReadAllowed)
	assert.Equal(t, predicate.AlwaysFalse, attr.WriteAllowed)
	assert.Equal(t, predicate.AlwaysTrue, attr.Selected)
}

func TestAttributeMetadata_AddAnnotations(t *testing.T) {
	t.Parallel()

	attr := metadata.NewAttribute("nickname")
	attr.AddAnnotations(map[string]any{"inputType": "text", "order": 1})
	attr.AddAnnotations(map[string]any{"order": 2})
	attr.AddAnnotations(nil)

	assert.Equal(t, map[string]any{"inputType": "text", "order": 2}, attr.Annotations)
}

func TestAttributeMetadata_Validators(t *testing.T) {
	t.Parallel()

	attr := metadata.NewAttribute("nickname")
	attr.AddValidators(
		metadata.ValidatorRef{ID: "length", Config: map[string]any{"max": 64}},
		metadata.ValidatorRef{ID: "email-format"},
		metadata.ValidatorRef{ID: "length"},
	)

	attr.RemoveValidator("length")

	require.Len(t, attr.Validators, 1)
	assert.Equal(t, "email-format", attr.Validators[0].ID)
}

func TestAttributeMetadata_Clone_IsDeep(t *testing.T) {
	t.Parallel()

	// Arrange
	attr := metadata.NewAttribute("nickname")
	attr.SetDisplayName("Nickname").
		SetGUIOrder(3).
		SetGroup(&metadata.GroupMetadata{Name: "personal", Annotations: map[string]any{"k": "v"}}).
		AddAnnotations(map[string]any{"inputType": "text"}).
		AddValidators(metadata.ValidatorRef{ID: "length"})

	// Act
	clone := attr.Clone()
	clone.Name = "other"
	clone.Annotations["inputType"] = "select"
	clone.Validators[0].ID = "email-format"
	clone.Group.Name = "admin"
	clone.Group.Annotations["k"] = "changed"

	// Assert
	assert.Equal(t, "nickname", attr.Name)
	assert.Equal(t, "text", attr.Annotations["inputType"])
	assert.Equal(t, "length", attr.Validators[0].ID)
	assert.Equal(t, "personal", attr.Group.Name)
	assert.Equal(t, "v", attr.Group.Annotations["k"])
}

func TestProfileMetadata_AttributeLookup(t *testing.T) {
	t.Parallel()

	profile := metadata.NewProfile("registration",
		metadata.NewAttribute("username"),
		metadata.NewAttribute("email"),
	)
	profile.AddAttribute(metadata.NewAttribute("email"))

	assert.Len(t, profile.Attribute("email"), 2)
	assert.Len(t, profile.Attribute("username"), 1)
	assert.Nil(t, profile.Attribute("missing"))
}

func TestProfileMetadata_RemoveAttribute(t *testing.T) {
	t.Parallel()

	profile := metadata.NewProfile("registration",
		metadata.NewAttribute("username"),
		metadata.NewAttribute("firstName"),
		metadata.NewAttribute("firstName"),
		metadata.NewAttribute("email"),
	)

	profile.RemoveAttribute("firstName")

	require.Len(t, profile.Attributes, 2)
	assert.Equal(t, "username", profile.Attributes[0].Name)
	assert.Equal(t, "email", profile.Attributes[1].Name)
}

func TestProfileMetadata_Clone_IsDeep(t *testing.T) {
	t.Parallel()

	profile := metadata.NewProfile("registration", metadata.NewAttribute("username"))

	clone := profile.Clone()
	clone.Attributes[0].Name = "changed"
	clone.AddAttribute(metadata.NewAttribute("extra"))

	assert.Equal(t, "username", profile.Attributes[0].Name)
	assert.Len(t, profile.Attributes, 1)
}

func TestDecoratorFunc(t *testing.T) {
	t.Parallel()

	var decorated string
	dec := metadata.DecoratorFunc(func(contextID string, profile *metadata.ProfileMetadata) {
		decorated = contextID
		profile.AddAttribute(metadata.NewAttribute("injected"))
	})

	profile := metadata.NewProfile("admin-edit")
	dec.Decorate("admin-edit", profile)

	assert.Equal(t, "admin-edit", decorated)
	assert.Len(t, profile.Attribute("injected"), 1)
}
