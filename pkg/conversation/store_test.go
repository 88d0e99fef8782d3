package conversation

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreHoldsOnlySystemTurn(t *testing.T) {
	s := NewStore("be nice")

	require.Equal(t, 1, s.Len())
	assert.Equal(t, Turn{Role: RoleSystem, Content: "be nice"}, s.Last())
	assert.Equal(t, "be nice", s.SystemPrompt())
	assert.NotEqual(t, uuid.Nil, s.ID())
}

func TestTurnView(t *testing.T) {
	assert.Equal(t, "[user]: hi there", Turn{Role: RoleUser, Content: "hi there\n\n"}.View())
	assert.Equal(t, "[assistant]: a\nb", NewTurn(RoleAssistant, "a\nb").View())
}

func TestAppendKeepsOrder(t *testing.T) {
	s := NewStore("sys")
	s.Append(RoleUser, "hi")
	s.Append(RoleAssistant, "hello")
	s.Append(RoleUser, "bye")

	assert.Equal(t, []Turn{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "bye"},
	}, s.FullHistory())
	assert.Equal(t, Turn{Role: RoleUser, Content: "bye"}, s.Last())
}

func TestFullHistoryIsACopy(t *testing.T) {
	s := NewStore("sys")
	s.Append(RoleUser, "hi")

	h := s.FullHistory()
	h[0].Content = "changed"
	h = append(h, Turn{Role: RoleUser, Content: "extra"})

	assert.Equal(t, "sys", s.SystemPrompt())
	assert.Equal(t, 2, s.Len())
	assert.Len(t, h, 3)
}

func TestRecentWindow(t *testing.T) {
	s := NewStore("sys")
	s.Append(RoleUser, "a")
	s.Append(RoleAssistant, "b")
	s.Append(RoleUser, "c")

	contents := func(n int) []string {
		var ret []string
		for turn := range s.RecentWindow(n) {
			ret = append(ret, turn.Content)
		}
		return ret
	}

	assert.Equal(t, []string{"b", "c"}, contents(2))
	assert.Equal(t, []string{"sys", "a", "b", "c"}, contents(4))
	assert.Equal(t, []string{"sys", "a", "b", "c"}, contents(10))
	assert.Nil(t, contents(0))
	assert.Nil(t, contents(-3))
}

func TestRecentWindowIsRestartable(t *testing.T) {
	s := NewStore("sys")
	s.Append(RoleUser, "a")
	s.Append(RoleAssistant, "b")

	w := s.RecentWindow(2)
	first := slices.Collect(w)
	second := slices.Collect(w)

	assert.Equal(t, first, second)
	assert.Equal(t, first, slices.Collect(s.RecentWindow(2)))
}

func TestRecentWindowReverse(t *testing.T) {
	s := NewStore("sys")
	s.Append(RoleUser, "a")
	s.Append(RoleAssistant, "b")
	s.Append(RoleUser, "c")

	var got []string
	for turn := range s.RecentWindowReverse(3) {
		got = append(got, turn.Content)
	}
	assert.Equal(t, []string{"c", "b", "a"}, got)

	got = nil
	for turn := range s.RecentWindowReverse(3) {
		got = append(got, turn.Content)
		break
	}
	assert.Equal(t, []string{"c"}, got)
}

func TestSaveAndLoadTranscript(t *testing.T) {
	for _, name := range []string{"transcript.json", "transcript.yaml"} {
		t.Run(name, func(t *testing.T) {
			s := NewStore("sys")
			s.Append(RoleUser, "recommend a cleanser")
			s.Append(RoleAssistant, "what budget?")

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, s.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, s.ID(), loaded.ID())
			assert.Equal(t, s.FullHistory(), loaded.FullHistory())
		})
	}
}

func TestLoadRejectsSecondSystemTurn(t *testing.T) {
	s := NewStore("sys")
	s.Append(RoleSystem, "sneaky")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, s.SaveToFile(path))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}
