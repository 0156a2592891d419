package turn

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/dexterslab/plural-backend/internal/types"
)

// GenerateImage renders an image for the prompt, uploads it to object
// storage, and persists a model message referencing the public URL. The
// outcome, success or failure, is always recorded as a message so the child
// sees a reply either way.
func (s *Service) GenerateImage(ctx context.Context, userID string, questID uuid.UUID, prompt string) error {
	log := s.logger.WithField("quest_id", questID)
	log.Info("generating image")

	imageURL, genErr := s.renderAndUpload(ctx, userID)
	if genErr != nil {
		log.WithError(genErr).Error("image generation failed")
	}

	parts := []types.ContentPart{
		{Type: types.PartTypeText, Text: fmt.Sprintf("Image generation request: %q", prompt)},
	}
	if genErr != nil {
		parts = append(parts, types.ContentPart{
			Type: types.PartTypeText,
			Text: fmt.Sprintf("Sorry, image generation failed: %v", genErr),
		})
	} else {
		parts = append(parts, types.ContentPart{
			Type:     types.PartTypeImageURL,
			ImageURL: &types.ImageRef{URL: imageURL},
		})
	}

	msg := &types.Message{
		QuestID: questID,
		UserID:  userID,
		Role:    types.RoleModel,
		Content: types.NewMixedContent(parts),
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return fmt.Errorf("persist image message: %w", err)
	}

	log.Info("image generation result persisted")
	return nil
}

func (s *Service) renderAndUpload(ctx context.Context, userID string) (string, error) {
	if s.images == nil {
		return "", fmt.Errorf("image storage not configured")
	}

	// TODO: call the image generation model once available; a solid
	// placeholder stands in for the generated bytes until then.
	data, err := renderPlaceholderPNG()
	if err != nil {
		return "", fmt.Errorf("render image: %w", err)
	}

	objectPath := fmt.Sprintf("%s/generated_%d_%d.png", userID, time.Now().UnixMilli(), 100+rand.Intn(900))
	imageURL, err := s.images.Upload(ctx, objectPath, data, "image/png")
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return imageURL, nil
}

func renderPlaceholderPNG() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	fill := color.RGBA{R: 255, A: 255}
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
