package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"single", "hello @bob", []string{"bob"}},
		{"punctuation", "(@Alice), meet @bob!", []string{"alice", "bob"}},
		{"dedup keeps first", "@bob @carol @BOB", []string{"bob", "carol"}},
		{"too short", "@ab hi", nil},
		{"bare at", "@ alone", nil},
		{"email is not a mention", "mail bob@example.com", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.content))
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	assert.Equal(t, []string{"movies"}, ExtractHashtags("hello @bob #movies"))
	assert.Equal(t, []string{"movies", "sci-fi"}, ExtractHashtags("#Movies and #movies, #Sci-Fi!"))
	assert.Nil(t, ExtractHashtags("no tags # here"))
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "movies", NormalizeTag("#Movies"))
	assert.Equal(t, "sci-fi", NormalizeTag("  #Sci Fi! "))
	assert.Equal(t, "", NormalizeTag("#"))
}

func TestValidatePushEndpoint(t *testing.T) {
	assert.NoError(t, ValidatePushEndpoint("https://fcm.googleapis.com/fcm/send/abc"))
	assert.NoError(t, ValidatePushEndpoint("http://localhost:9000/push"))
	assert.Error(t, ValidatePushEndpoint(""))
	assert.Error(t, ValidatePushEndpoint("http://example.com/push"))
	assert.Error(t, ValidatePushEndpoint("not a url"))
}
