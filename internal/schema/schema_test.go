package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestSchema() *Schema {
	character := NewType("Character", TypeKindInterface, "").
		AddField(NewField("name", "", NonNullType(NamedType("String"))))
	human := NewType("Human", TypeKindObject, "").
		AddInterface("Character").
		AddField(NewField("name", "", NonNullType(NamedType("String")))).
		AddField(NewField("height", "", NamedType("Float")).Deprecate("use heightMeters"))
	episode := NewType("Episode", TypeKindEnum, "").
		AddEnumValue(NewEnumValue("NEWHOPE", "")).
		AddEnumValue(NewEnumValue("EMPIRE", ""))
	search := NewType("SearchResult", TypeKindUnion, "").
		AddPossibleType("Human")
	filter := NewType("Filter", TypeKindInputObject, "").
		AddInputField(NewInputValue("episode", "", NamedType("Episode")).SetDefault("EMPIRE")).
		AddInputField(NewInputValue("limit", "", NamedType("Int")).SetDefault(10))
	query := NewType("Query", TypeKindObject, "Root query.").
		AddField(NewField("hero", "", NamedType("Character")).
			AddArgument(NewInputValue("episode", "", NamedType("Episode")).SetDefault("NEWHOPE"))).
		AddField(NewField("search", "", ListType(NonNullType(NamedType("SearchResult")))).
			AddArgument(NewInputValue("filter", "", NamedType("Filter")).
				SetDefault(map[string]any{"limit": 5, "episode": "EMPIRE"})))

	return NewSchema("").
		SetQueryType("Query").
		AddType(character).
		AddType(human).
		AddType(episode).
		AddType(search).
		AddType(filter).
		AddType(query)
}

func TestRender(t *testing.T) {
	expected := `schema {
  query: Query
}

interface Character {
  name: String!
}

enum Episode {
  NEWHOPE
  EMPIRE
}

input Filter {
  episode: Episode = EMPIRE
  limit: Int = 10
}

type Human implements Character {
  name: String!
  height: Float @deprecated(reason: "use heightMeters")
}

"""
Root query.
"""
type Query {
  hero(episode: Episode = NEWHOPE): Character
  search(filter: Filter = {episode: EMPIRE, limit: 5}): [SearchResult!]
}

union SearchResult = Human
`
	if diff := cmp.Diff(expected, Render(newTestSchema())); diff != "" {
		t.Errorf("rendered schema mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderRootOperationTypes(t *testing.T) {
	s := NewSchema("").
		SetQueryType("Q").
		SetMutationType("M").
		SetSubscriptionType("S")
	for _, name := range []string{"Q", "M", "S"} {
		s.AddType(NewType(name, TypeKindObject, "").AddField(NewField("ok", "", NamedType("Boolean"))))
	}

	out := Render(s)
	require.Contains(t, out, "schema {\n  query: Q\n  mutation: M\n  subscription: S\n}\n")
	require.NotContains(t, out, "scalar String")
}

func TestIsPossibleType(t *testing.T) {
	s := newTestSchema()

	require.True(t, s.IsPossibleType("Character", "Human"))
	require.True(t, s.IsPossibleType("SearchResult", "Human"))
	require.True(t, s.IsPossibleType("Human", "Human"))
	require.False(t, s.IsPossibleType("Character", "Query"))
	require.False(t, s.IsPossibleType("Missing", "Human"))
}

func TestTypeRefHelpers(t *testing.T) {
	ref := NonNullType(ListType(NonNullType(NamedType("Int"))))

	require.True(t, IsNonNull(ref))
	require.True(t, IsList(ref))
	require.Equal(t, "Int", GetNamedType(ref))
	require.Equal(t, "[Int!]!", renderTypeRef(ref))
	require.Equal(t, TypeRefKindList, Unwrap(ref).Kind)
}
