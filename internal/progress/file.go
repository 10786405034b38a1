package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// document is the on-disk shape of the progress file.
type document struct {
	Courses            map[string]CourseProgress `json:"courses"`
	UnknownQuizResults []QuizResult              `json:"unknownQuizResults"`
}

func emptyDocument() document {
	return document{
		Courses:            map[string]CourseProgress{},
		UnknownQuizResults: []QuizResult{},
	}
}

// fileSchema validates the progress document on load so a corrupted or
// hand-edited file fails loudly instead of surfacing as odd behavior
// deep in the session engine.
const fileSchema = `{
	"type": "object",
	"required": ["courses"],
	"properties": {
		"courses": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["courseId", "updatedAt"],
				"properties": {
					"courseId": {"type": "string"},
					"currentLessonId": {"type": "string"},
					"currentStepId": {"type": "string"},
					"completedSteps": {"type": "array", "items": {"type": "string"}},
					"completedLessons": {"type": "array", "items": {"type": "string"}},
					"quizResults": {"type": "array", "items": {"$ref": "#/$defs/quizResult"}},
					"stepQuizRequired": {"type": "object", "additionalProperties": {"type": "boolean"}},
					"completed": {"type": "boolean"},
					"updatedAt": {"type": "string"}
				}
			}
		},
		"unknownQuizResults": {"type": "array", "items": {"$ref": "#/$defs/quizResult"}}
	},
	"$defs": {
		"quizResult": {
			"type": "object",
			"required": ["stepId", "correct", "submittedAt"],
			"properties": {
				"stepId": {"type": "string"},
				"question": {"type": "string"},
				"correctAnswer": {"type": "string"},
				"answer": {"type": "string"},
				"correct": {"type": "boolean"},
				"score": {"type": "number"},
				"submittedAt": {"type": "string"}
			}
		}
	}
}`

var (
	fileSchemaOnce     sync.Once
	fileSchemaCompiled *jsonschema.Schema
	fileSchemaErr      error
)

func compiledFileSchema() (*jsonschema.Schema, error) {
	fileSchemaOnce.Do(func() {
		var parsed any
		if err := json.Unmarshal([]byte(fileSchema), &parsed); err != nil {
			fileSchemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://progress.json"
		if err := c.AddResource(url, parsed); err != nil {
			fileSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		fileSchemaCompiled, fileSchemaErr = c.Compile(url)
	})
	return fileSchemaCompiled, fileSchemaErr
}

// FileStore persists progress as a single JSON document. Every mutation
// is a read-modify-write of the whole file under the store's mutex;
// last write wins across processes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store at path. The file is created
// lazily on the first write; a missing file reads as empty state.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return emptyDocument(), nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read progress file: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return document{}, fmt.Errorf("parse progress file: %w", err)
	}
	schema, err := compiledFileSchema()
	if err != nil {
		return document{}, err
	}
	if err := schema.Validate(parsed); err != nil {
		return document{}, fmt.Errorf("invalid progress file %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("decode progress file: %w", err)
	}
	if doc.Courses == nil {
		doc.Courses = map[string]CourseProgress{}
	}
	if doc.UnknownQuizResults == nil {
		doc.UnknownQuizResults = []QuizResult{}
	}
	return doc, nil
}

func (s *FileStore) save(doc document) error {
	if err := ensureDir(s.path); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write progress file: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(courseID string) (*CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	p, ok := doc.Courses[courseID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Put implements Store.
func (s *FileStore) Put(p CourseProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Courses[p.CourseID] = p
	return s.save(doc)
}

// Delete implements Store.
func (s *FileStore) Delete(courseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := doc.Courses[courseID]; !ok {
		return false, nil
	}
	delete(doc.Courses, courseID)
	return true, s.save(doc)
}

// List implements Store.
func (s *FileStore) List() ([]CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]CourseProgress, 0, len(doc.Courses))
	for _, p := range doc.Courses {
		out = append(out, p)
	}
	return out, nil
}

// AppendQuizResult implements Store.
func (s *FileStore) AppendQuizResult(courseID string, r QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if courseID == "" {
		doc.UnknownQuizResults = append(doc.UnknownQuizResults, r)
		return s.save(doc)
	}

	p, ok := doc.Courses[courseID]
	if !ok {
		p = CourseProgress{CourseID: courseID}
	}
	p.QuizResults = append(p.QuizResults, r)
	p.UpdatedAt = r.SubmittedAt
	doc.Courses[courseID] = p
	return s.save(doc)
}

// SetStepQuizRequired implements Store.
func (s *FileStore) SetStepQuizRequired(courseID, stepID string, required bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	p, ok := doc.Courses[courseID]
	if !ok {
		p = CourseProgress{CourseID: courseID}
	}
	if p.StepQuizRequired == nil {
		p.StepQuizRequired = map[string]bool{}
	}
	p.StepQuizRequired[stepID] = required
	doc.Courses[courseID] = p
	return s.save(doc)
}

// UnknownQuizResults returns results recorded without a resolvable
// course, oldest first.
func (s *FileStore) UnknownQuizResults() ([]QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.UnknownQuizResults, nil
}

// Close implements Store. The file store holds no open handles.
func (s *FileStore) Close() error {
	return nil
}
