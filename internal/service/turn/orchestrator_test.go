package turn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexterslab/plural-backend/internal/config"
	"github.com/dexterslab/plural-backend/internal/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testContextConfig() config.ContextConfig {
	return config.ContextConfig{
		MatchThreshold:     0.75,
		MatchCount:         3,
		RecencyCount:       3,
		MaxContextMessages: 7,
	}
}

type fakeStore struct {
	msgs       []types.Message
	getErr     error
	similar    []types.Message
	similarErr error
	created    []*types.Message
	createErr  error
}

func (f *fakeStore) GetByQuestID(ctx context.Context, questID uuid.UUID) ([]types.Message, error) {
	return f.msgs, f.getErr
}

func (f *fakeStore) FindSimilar(ctx context.Context, questID uuid.UUID, embedding []float32, threshold float64, count int) ([]types.Message, error) {
	if f.similarErr != nil {
		return nil, f.similarErr
	}
	return f.similar, nil
}

func (f *fakeStore) Create(ctx context.Context, msg *types.Message) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, msg)
	return nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeGenerator struct {
	response string
	genErr   error
	jsonResp string
	jsonErr  error
}

func (f *fakeGenerator) Generate(ctx context.Context, turns []types.DialogueTurn) (string, error) {
	if f.genErr != nil {
		return "", f.genErr
	}
	return f.response, nil
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, turns []types.DialogueTurn) (string, error) {
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	return f.jsonResp, nil
}

type fakePrompts struct{}

func (fakePrompts) EffectivePrompt(ctx context.Context, userID string) string {
	return "You are a friendly guide."
}

type fakeImageStore struct {
	url string
	err error
}

func (f *fakeImageStore) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	return f.url, f.err
}

func textMessage(role types.MessageRole, text string) types.Message {
	return types.Message{
		ID:      uuid.New(),
		Role:    role,
		Content: types.NewTextContent(text),
	}
}

func newTestService(store *fakeStore, gen *fakeGenerator, embedder *fakeEmbedder, images ImageStore) *Service {
	return NewService(store, gen, embedder, fakePrompts{}, images, testLogger(), testContextConfig())
}

func TestRunPersistsModelMessageWithSuggestions(t *testing.T) {
	store := &fakeStore{
		msgs: []types.Message{
			textMessage(types.RoleUser, "why is the sky blue?"),
		},
	}
	gen := &fakeGenerator{
		response: "Great question! Light scatters in the air.",
		jsonResp: `["What about sunsets?", "Why is Mars red?", "What is light?"]`,
	}
	svc := newTestService(store, gen, &fakeEmbedder{vec: []float32{0.1, 0.2}}, nil)

	err := svc.Run(context.Background(), "user-1", uuid.New())
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	created := store.created[0]
	assert.Equal(t, types.RoleModel, created.Role)
	assert.Equal(t, gen.response, created.Content.PlainText())
	assert.Equal(t, []float32{0.1, 0.2}, created.Embedding)

	var metadata map[string][]string
	require.NoError(t, json.Unmarshal(created.Metadata, &metadata))
	assert.Equal(t, []string{"What about sunsets?", "Why is Mars red?", "What is light?"}, metadata["suggestions"])
}

func TestRunGenerationFailurePersistsNothing(t *testing.T) {
	store := &fakeStore{
		msgs: []types.Message{
			textMessage(types.RoleUser, "hello"),
		},
	}
	gen := &fakeGenerator{genErr: errors.New("model unavailable")}
	svc := newTestService(store, gen, &fakeEmbedder{vec: []float32{0.1}}, nil)

	err := svc.Run(context.Background(), "user-1", uuid.New())
	require.Error(t, err)
	assert.Empty(t, store.created)
}

func TestRunEmptyHistorySkipsTurn(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeGenerator{response: "hi"}, &fakeEmbedder{}, nil)

	err := svc.Run(context.Background(), "user-1", uuid.New())
	require.NoError(t, err)
	assert.Empty(t, store.created)
}

func TestRunNoUserMessageSkipsTurn(t *testing.T) {
	store := &fakeStore{
		msgs: []types.Message{
			textMessage(types.RoleModel, "welcome!"),
		},
	}
	svc := newTestService(store, &fakeGenerator{response: "hi"}, &fakeEmbedder{}, nil)

	err := svc.Run(context.Background(), "user-1", uuid.New())
	require.NoError(t, err)
	assert.Empty(t, store.created)
}

func TestRunMalformedSuggestionsOmitsMetadata(t *testing.T) {
	store := &fakeStore{
		msgs: []types.Message{
			textMessage(types.RoleUser, "tell me about volcanoes"),
		},
	}
	gen := &fakeGenerator{
		response: "Volcanoes are mountains that can erupt!",
		jsonResp: `{"not": "a list"}`,
	}
	svc := newTestService(store, gen, &fakeEmbedder{err: errors.New("embed down")}, nil)

	err := svc.Run(context.Background(), "user-1", uuid.New())
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Nil(t, store.created[0].Metadata)
	assert.Nil(t, store.created[0].Embedding)
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "well-formed array",
			raw:  `["a?", "b?", "c?"]`,
			want: []string{"a?", "b?", "c?"},
		},
		{
			name: "code fenced",
			raw:  "```json\n[\"a?\", \"b?\"]\n```",
			want: []string{"a?", "b?"},
		},
		{
			name: "capped at four",
			raw:  `["a", "b", "c", "d", "e", "f"]`,
			want: []string{"a", "b", "c", "d"},
		},
		{
			name:    "not json",
			raw:     "here are some questions",
			wantErr: true,
		},
		{
			name:    "not an array",
			raw:     `{"suggestions": ["a"]}`,
			wantErr: true,
		},
		{
			name:    "mixed types",
			raw:     `["a", 2, "c"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestions(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateImagePersistsImageMessage(t *testing.T) {
	store := &fakeStore{}
	images := &fakeImageStore{url: "https://storage.googleapis.com/quest-images/user-1/generated.png"}
	svc := newTestService(store, &fakeGenerator{}, &fakeEmbedder{}, images)

	err := svc.GenerateImage(context.Background(), "user-1", uuid.New(), "a friendly dragon")
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	created := store.created[0]
	assert.Equal(t, types.RoleModel, created.Role)
	require.True(t, created.Content.IsMixed())
	require.Len(t, created.Content.Parts, 2)
	assert.Equal(t, types.PartTypeText, created.Content.Parts[0].Type)
	require.NotNil(t, created.Content.Parts[1].ImageURL)
	assert.Equal(t, images.url, created.Content.Parts[1].ImageURL.URL)
}

func TestGenerateImageUploadFailurePersistsApology(t *testing.T) {
	store := &fakeStore{}
	images := &fakeImageStore{err: errors.New("bucket unavailable")}
	svc := newTestService(store, &fakeGenerator{}, &fakeEmbedder{}, images)

	err := svc.GenerateImage(context.Background(), "user-1", uuid.New(), "a castle")
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	parts := store.created[0].Content.Parts
	require.Len(t, parts, 2)
	assert.Contains(t, parts[1].Text, "image generation failed")
}
