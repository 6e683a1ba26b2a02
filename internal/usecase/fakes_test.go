package usecase_test

import (
	"time"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// Hand-rolled fakes over the domain ports. Each test configures only the
// fields it needs.

type fakeCandidates struct {
	candidates map[string]domain.Candidate
	statuses   map[string]domain.CandidateStatus
	errMsgs    map[string]string
	getErr     error
}

func newFakeCandidates() *fakeCandidates {
	return &fakeCandidates{
		candidates: map[string]domain.Candidate{},
		statuses:   map[string]domain.CandidateStatus{},
		errMsgs:    map[string]string{},
	}
}

func (f *fakeCandidates) Get(_ domain.Context, id string) (domain.Candidate, error) {
	if f.getErr != nil {
		return domain.Candidate{}, f.getErr
	}
	c, ok := f.candidates[id]
	if !ok {
		return domain.Candidate{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCandidates) UpdateStatus(_ domain.Context, id string, status domain.CandidateStatus, errMsg string) error {
	f.statuses[id] = status
	f.errMsgs[id] = errMsg
	return nil
}

type fakeDocuments struct {
	docs     []domain.Document
	listErr  error
	textURIs map[string]string
}

func newFakeDocuments(docs ...domain.Document) *fakeDocuments {
	return &fakeDocuments{docs: docs, textURIs: map[string]string{}}
}

func (f *fakeDocuments) ListByCandidate(_ domain.Context, candidateID string) ([]domain.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Document
	for _, d := range f.docs {
		if d.CandidateID == candidateID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocuments) SetTextURI(_ domain.Context, documentID, textURI string) error {
	f.textURIs[documentID] = textURI
	for i := range f.docs {
		if f.docs[i].DocumentID == documentID {
			f.docs[i].TextURI = textURI
		}
	}
	return nil
}

type fakeJobs struct {
	jobs map[string]domain.JobPosting
}

func (f *fakeJobs) Get(_ domain.Context, id string) (domain.JobPosting, error) {
	j, ok := f.jobs[id]
	if !ok {
		return domain.JobPosting{}, domain.ErrNotFound
	}
	return j, nil
}

type fakeExtractions struct {
	byCandidate map[string]domain.Extraction
	upsertErr   error
}

func newFakeExtractions() *fakeExtractions {
	return &fakeExtractions{byCandidate: map[string]domain.Extraction{}}
}

func (f *fakeExtractions) Upsert(_ domain.Context, e domain.Extraction) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.byCandidate[e.CandidateID] = e
	return nil
}

func (f *fakeExtractions) Get(_ domain.Context, candidateID string) (domain.Extraction, error) {
	e, ok := f.byCandidate[candidateID]
	if !ok {
		return domain.Extraction{}, domain.ErrNotFound
	}
	return e, nil
}

type fakeEmbeddings struct {
	byCandidate map[string][]domain.Embedding
	replaces    int
}

func newFakeEmbeddings() *fakeEmbeddings {
	return &fakeEmbeddings{byCandidate: map[string][]domain.Embedding{}}
}

func (f *fakeEmbeddings) Replace(_ domain.Context, candidateID string, embs []domain.Embedding) error {
	f.replaces++
	f.byCandidate[candidateID] = embs
	return nil
}

func (f *fakeEmbeddings) ListByCandidate(_ domain.Context, candidateID string) ([]domain.Embedding, error) {
	return f.byCandidate[candidateID], nil
}

type fakeScores struct {
	byCandidate map[string]domain.Score
}

func newFakeScores() *fakeScores { return &fakeScores{byCandidate: map[string]domain.Score{}} }

func (f *fakeScores) Upsert(_ domain.Context, s domain.Score) error {
	f.byCandidate[s.CandidateID] = s
	return nil
}

func (f *fakeScores) Get(_ domain.Context, candidateID string) (domain.Score, error) {
	s, ok := f.byCandidate[candidateID]
	if !ok {
		return domain.Score{}, domain.ErrNotFound
	}
	return s, nil
}

type fakeScoreConfigs struct {
	latest    domain.ScoreConfig
	latestErr error
}

func (f *fakeScoreConfigs) Latest(_ domain.Context) (domain.ScoreConfig, error) {
	if f.latestErr != nil {
		return domain.ScoreConfig{}, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeScoreConfigs) Create(_ domain.Context, c domain.ScoreConfig) (int, error) {
	f.latest = c
	f.latest.Version = c.Version
	return c.Version, nil
}

type fakeExplanations struct {
	byCandidate map[string]domain.Explanation
}

func newFakeExplanations() *fakeExplanations {
	return &fakeExplanations{byCandidate: map[string]domain.Explanation{}}
}

func (f *fakeExplanations) Upsert(_ domain.Context, e domain.Explanation) error {
	f.byCandidate[e.CandidateID] = e
	return nil
}

func (f *fakeExplanations) Get(_ domain.Context, candidateID string) (domain.Explanation, error) {
	e, ok := f.byCandidate[candidateID]
	if !ok {
		return domain.Explanation{}, domain.ErrNotFound
	}
	return e, nil
}

// fakeStorage keeps blobs in memory keyed by generated URIs.
type fakeStorage struct {
	blobs    map[string]string
	writes   int
	writeErr error
	readErr  error
}

func newFakeStorage() *fakeStorage { return &fakeStorage{blobs: map[string]string{}} }

func (f *fakeStorage) ReadRaw(_ domain.Context, uri string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	b, ok := f.blobs[uri]
	if !ok {
		return nil, domain.ErrInputMissing
	}
	return []byte(b), nil
}

func (f *fakeStorage) WriteRaw(_ domain.Context, originalFilename string, content []byte) (string, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}
	return f.put("raw/"+originalFilename, string(content)), nil
}

func (f *fakeStorage) ReadText(ctx domain.Context, uri string) (string, error) {
	b, err := f.ReadRaw(ctx, uri)
	return string(b), err
}

func (f *fakeStorage) put(prefix, content string) string {
	f.writes++
	uri := prefix + "/" + time.Now().Format("150405.000000000") + "-" + string(rune('a'+f.writes%26))
	f.blobs[uri] = content
	return uri
}

func (f *fakeStorage) WriteText(_ domain.Context, candidateID, content string) (string, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}
	return f.put("text/"+candidateID, content), nil
}

func (f *fakeStorage) WriteEvidence(_ domain.Context, candidateID, content string) (string, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}
	return f.put("evidence/"+candidateID, content), nil
}

// fakeAI returns fixed responses and records prompts.
type fakeAI struct {
	extractResponse string
	extractErr      error
	systemPrompts   []string
	userPrompts     []string

	embedVectors [][]float32
	embedErr     error
	embedInputs  [][]string
}

func (f *fakeAI) ExtractJSON(_ domain.Context, systemPrompt, userPrompt string) (string, error) {
	f.systemPrompts = append(f.systemPrompts, systemPrompt)
	f.userPrompts = append(f.userPrompts, userPrompt)
	if f.extractErr != nil {
		return "", f.extractErr
	}
	return f.extractResponse, nil
}

func (f *fakeAI) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	f.embedInputs = append(f.embedInputs, texts)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.embedVectors != nil {
		return f.embedVectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// fakeExtractor converts bytes to string, failing for configured filenames.
type fakeExtractor struct {
	failFiles map[string]error
	calls     int
}

func (f *fakeExtractor) Extract(_ domain.Context, fileName string, content []byte) (string, error) {
	f.calls++
	if err, ok := f.failFiles[fileName]; ok {
		return "", err
	}
	return string(content), nil
}
