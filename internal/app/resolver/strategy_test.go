package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericCleanupStrategy_Rewrite(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
		wantErr  bool
	}{
		{
			name:     "strips marketing words and punctuation",
			query:    "Imagine Dragons - Believer (Official Video)",
			expected: "Imagine Dragons Believer",
		},
		{
			name:     "strips remaster tags",
			query:    "Queen - Bohemian Rhapsody [2011 Remastered] HD",
			expected: "Queen Bohemian Rhapsody 2011",
		},
		{
			name:    "already clean query is rejected",
			query:   "plain query",
			wantErr: true,
		},
		{
			name:    "query of only marketing words",
			query:   "official video HD",
			wantErr: true,
		},
		{
			name:    "empty query",
			query:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &GenericCleanupStrategy{}
			got, err := s.Rewrite(tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestArtistOnlyStrategy_Rewrite(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
		wantErr  bool
	}{
		{name: "dash separator", query: "Daft Punk - One More Time", expected: "Daft Punk"},
		{name: "en dash separator", query: "Daft Punk – One More Time", expected: "Daft Punk"},
		{name: "no separator", query: "One More Time", wantErr: true},
		{name: "leading dash", query: "- One More Time", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &ArtistOnlyStrategy{}
			got, err := s.Rewrite(tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSimplifiedStrategy_Rewrite(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
		wantErr  bool
	}{
		{
			name:     "keeps three significant words",
			query:    "the quick brown fox jumps over",
			expected: "quick brown fox",
		},
		{
			name:     "skips stop words and short tokens",
			query:    "feat. DJ you and someone great",
			expected: "someone great",
		},
		{
			name:    "nothing significant",
			query:   "a an it",
			wantErr: true,
		},
		{
			name:    "single word is already minimal",
			query:   "foo",
			wantErr: true,
		},
		{
			name:    "three clean words are already minimal",
			query:   "quick brown fox",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SimplifiedStrategy{}
			got, err := s.Rewrite(tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDefaultStrategies_Order(t *testing.T) {
	strategies := DefaultStrategies()

	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"generic_cleanup", "artist_only", "simplified"}, names)
}
