package fallback

import (
	"math/rand"

	"thumbnail-analyze-service/models"
)

// Generator synthesizes scoring results when the model's output cannot be
// parsed. Parsing failure is a degraded-quality outcome, not a hard error:
// the orchestrator always produces a structurally valid result for any
// accepted request.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator backed by the given source. Tests pass a fixed
// seed; main passes a time-seeded source.
func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

var genericRecommendations = []string{
	"Analysis completed with basic scoring",
	"Consider re-analyzing for detailed insights",
	"Thumbnail shows good potential",
}

// Generate returns a synthetic AIResponse for count thumbnails: overall
// score in [60,90], independent sub-scores in [60,100], predictedCTR =
// overall/10, coin-flip face detection, no detected text, and the winner
// set to the highest overall score (first index on ties).
func (g *Generator) Generate(count int) *models.AIResponse {
	thumbnails := make([]models.ThumbnailScore, 0, count)

	winner := 0
	best := -1
	for i := 0; i < count; i++ {
		score := g.rng.Intn(30) + 60
		if score > best {
			best = score
			winner = i
		}
		recs := make([]string, len(genericRecommendations))
		copy(recs, genericRecommendations)
		thumbnails = append(thumbnails, models.ThumbnailScore{
			ThumbnailIndex: i,
			OverallScore:   score,
			Scores: models.ComponentScores{
				FaceVisibility:  g.rng.Intn(40) + 60,
				TextReadability: g.rng.Intn(40) + 60,
				ColorContrast:   g.rng.Intn(40) + 60,
				VisualClarity:   g.rng.Intn(40) + 60,
				EmotionalImpact: g.rng.Intn(40) + 60,
			},
			PredictedCTR:    float64(score) / 10,
			FaceDetected:    g.rng.Intn(2) == 1,
			TextDetected:    "",
			Recommendations: recs,
		})
	}

	return &models.AIResponse{
		Thumbnails: thumbnails,
		Winner:     winner,
	}
}
