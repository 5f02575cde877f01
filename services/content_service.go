package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"lipia/metrics"
	"lipia/models"

	"github.com/sirupsen/logrus"
)

// WordConsumer debits a user's remote word allowance.
type WordConsumer interface {
	ConsumeWords(ctx context.Context, username string, count int) (*Result, error)
}

var humanizeReplacements = strings.NewReplacer(
	"In conclusion", "To sum up",
	"It is important to note", "Keep in mind",
	"In this essay", "Here",
)

type HumanizeResult struct {
	Text           string `json:"text"`
	Message        string `json:"message"`
	WordsProcessed int    `json:"words_processed"`
	Truncated      bool   `json:"truncated"`
}

// ContentService hosts the humanizer and the AI detector. Both are
// placeholders for real models; only their inputs and output shapes matter.
type ContentService struct {
	words WordConsumer
	plans models.PlanTable
	log   *logrus.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewContentService(words WordConsumer, plans models.PlanTable, log *logrus.Logger) *ContentService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	seed := uint64(time.Now().UnixNano())
	return &ContentService{
		words: words,
		plans: plans,
		log:   log,
		rng:   rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// Humanize truncates text to the plan's word limit, debits exactly the words
// it will process, and only then rewrites them. A refused debit leaves the
// text untouched and returns the remote reason.
func (s *ContentService) Humanize(ctx context.Context, user *models.User, text string) (*HumanizeResult, error) {
	if user.PaymentRequired() {
		return nil, ErrPaymentRequired
	}

	words := strings.Fields(text)
	limit := s.plans.WordLimit(user.PlanOrDefault())
	result := &HumanizeResult{
		Text:           text,
		Message:        "Text successfully humanized!",
		WordsProcessed: len(words),
	}
	if len(words) > limit {
		result.Text = strings.Join(words[:limit], " ")
		result.WordsProcessed = limit
		result.Truncated = true
		result.Message = fmt.Sprintf("Text was truncated to %d words due to your plan limit.", limit)
	}

	if _, err := s.words.ConsumeWords(ctx, user.Username, result.WordsProcessed); err != nil {
		s.log.WithError(err).WithField("username", user.Username).Info("word consumption refused")
		return nil, err
	}

	result.Text = humanizeReplacements.Replace(result.Text)
	metrics.AddWordsProcessed(string(user.PlanOrDefault()), result.WordsProcessed)
	return result, nil
}

// Detect scores text for likely AI authorship. It does not touch the allowance.
func (s *ContentService) Detect(_ context.Context, user *models.User, text string) (*models.Detection, error) {
	if user.PaymentRequired() {
		return nil, ErrPaymentRequired
	}

	s.mu.Lock()
	formal := 60 + s.rng.IntN(36)
	repetitive := 40 + s.rng.IntN(51)
	uniformity := 50 + s.rng.IntN(46)
	s.mu.Unlock()

	ai := (formal + repetitive + uniformity) / 3
	return &models.Detection{
		AIScore:    ai,
		HumanScore: 100 - ai,
		Analysis: models.DetectionAnalysis{
			FormalLanguage:     formal,
			RepetitivePatterns: repetitive,
			SentenceUniformity: uniformity,
		},
	}, nil
}
