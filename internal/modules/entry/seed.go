package entry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/pkg/plaintext"
	"github.com/hindsight-app/core/internal/pkg/review"
)

const (
	seedMaxCount  = 1000
	seedSpreadDay = 60
)

type seedScenario struct {
	Type    models.EventType
	Context string
	Emotion string
	Tags    []string
}

// Fixed scenario pool for demo fixtures. Not production content.
var seedScenarios = []seedScenario{
	{models.EventDecision, "Decided to switch the team to trunk-based development", "hopeful", []string{"work", "process"}},
	{models.EventDecision, "Accepted the offer from the smaller company instead of the big one", "nervous", []string{"career"}},
	{models.EventDecision, "Chose to deploy the migration on Friday afternoon", "confident", []string{"work", "deploy"}},
	{models.EventDecision, "Started saying no to meetings without an agenda", "relieved", []string{"work", "boundaries"}},
	{models.EventDecision, "Signed up for the half marathon in October", "excited", []string{"health", "running"}},
	{models.EventMistake, "Pushed a config change straight to production without review", "embarrassed", []string{"work", "deploy"}},
	{models.EventMistake, "Forgot my sister's birthday until 11pm", "guilty", []string{"family"}},
	{models.EventMistake, "Agreed to a deadline I knew was unrealistic", "frustrated", []string{"work", "boundaries"}},
	{models.EventMistake, "Stayed up until 3am scrolling again", "tired", []string{"health", "sleep"}},
	{models.EventStress, "On-call pager went off four times during dinner", "drained", []string{"work", "oncall"}},
	{models.EventStress, "Argument with my flatmate about the kitchen, again", "angry", []string{"home"}},
	{models.EventStress, "Quarterly review coming up and the numbers look bad", "anxious", []string{"work"}},
	{models.EventStress, "Flight delayed five hours with no information", "helpless", []string{"travel"}},
}

var seedReflections = []string{
	"Looking back, this went better than I feared. The worst case never happened.",
	"I would do it differently now. The rush was self-imposed.",
	"Still glad I did it, even though the first week was rough.",
	"The thing I was worried about turned out not to matter at all.",
	"Talking it through earlier would have saved everyone a week.",
}

// Seed inserts count synthetic events spread over the last sixty days.
// Roughly forty percent carry a pre-filled reflection and half are already
// marked reviewed. Writes go through the store's chunked path.
func (s *Service) Seed(ctx context.Context, count int) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("seed count must be positive")
	}
	if count > seedMaxCount {
		count = seedMaxCount
	}

	now := time.Now()
	events := make([]models.Event, 0, count)
	for i := 0; i < count; i++ {
		sc := seedScenarios[rand.IntN(len(seedScenarios))]
		createdAt := now.Add(-time.Duration(rand.Int64N(int64(seedSpreadDay * 24 * time.Hour))))

		tagList := append(models.StringArray{}, sc.Tags...)
		e := models.Event{
			ID:            uuid.New().String(),
			Type:          sc.Type,
			Context:       sc.Context,
			Emotion:       sc.Emotion,
			Tags:          tagList,
			ReviewDueDate: review.DueDate(createdAt),
			CreatedAt:     createdAt,
			SearchText:    models.BuildSearchText(plaintext.Extract(sc.Context), sc.Emotion, tagList),
		}
		if rand.Float64() < 0.4 {
			reflection := seedReflections[rand.IntN(len(seedReflections))]
			e.Reflection = &reflection
		}
		if rand.Float64() < 0.5 {
			e.IsReviewed = true
			reviewedAt := e.ReviewDueDate.Add(time.Duration(rand.Int64N(int64(48 * time.Hour))))
			e.UpdatedAt = &reviewedAt
		}
		events = append(events, e)
	}

	if err := s.store.SeedEvents(ctx, events); err != nil {
		return 0, err
	}
	if err := s.tagIndex.Reload(ctx); err != nil {
		return len(events), err
	}
	return len(events), nil
}
