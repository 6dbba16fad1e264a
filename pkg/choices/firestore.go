package choices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"

	"github.com/teslashibe/go-shade/internal/log"
)

// DefaultCollection is the Firestore collection choices are written to.
const DefaultCollection = "toneChoices"

// FirestoreConfig configures the Firestore store.
type FirestoreConfig struct {
	GoogleConfig

	// Database is the Firestore database ID.
	Database string

	Collection string
}

// DefaultFirestoreConfig returns the default database and collection.
func DefaultFirestoreConfig() FirestoreConfig {
	return FirestoreConfig{
		Database:   "(default)",
		Collection: DefaultCollection,
	}
}

// Firestore implements Store on the Firestore REST API. Each choice is a
// document whose ID is the choice ID.
type Firestore struct {
	svc        *firestore.Service
	parent     string
	collection string
	logger     *slog.Logger
}

// NewFirestore connects to Firestore.
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (*Firestore, error) {
	opts, project, err := clientOptions(ctx, cfg.GoogleConfig, firestore.DatastoreScope)
	if err != nil {
		return nil, err
	}
	if project == "" {
		return nil, errors.New("choices: firestore project ID required")
	}
	if cfg.Database == "" {
		cfg.Database = "(default)"
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	svc, err := firestore.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("choices: firestore client: %w", err)
	}

	return &Firestore{
		svc:        svc,
		parent:     fmt.Sprintf("projects/%s/databases/%s/documents", project, cfg.Database),
		collection: cfg.Collection,
		logger:     log.Component("choices.firestore"),
	}, nil
}

// Save implements Store.
func (f *Firestore) Save(ctx context.Context, c *Choice) error {
	if err := prepare(c, time.Now()); err != nil {
		return err
	}
	doc, err := toDocument(c)
	if err != nil {
		return err
	}

	_, err = f.svc.Projects.Databases.Documents.
		CreateDocument(f.parent, f.collection, doc).
		DocumentId(c.ID).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("choices: firestore create: %w", err)
	}
	f.logger.Debug("choice saved", "id", c.ID, "user", c.UserTone, "ai", c.AITone)
	return nil
}

// Get implements Store.
func (f *Firestore) Get(ctx context.Context, id string) (*Choice, error) {
	name := f.parent + "/" + f.collection + "/" + id
	doc, err := f.svc.Projects.Databases.Documents.Get(name).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("choices: firestore get: %w", err)
	}
	return fromDocument(doc)
}

// List implements Store.
func (f *Firestore) List(ctx context.Context, limit int) ([]*Choice, error) {
	call := f.svc.Projects.Databases.Documents.
		List(f.parent, f.collection).
		OrderBy("timestamp desc").
		Context(ctx)
	if limit > 0 {
		call = call.PageSize(int64(limit))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("choices: firestore list: %w", err)
	}

	out := make([]*Choice, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		c, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Close implements Store.
func (f *Firestore) Close() error {
	return nil
}

// wireValue is a Firestore Value in its REST JSON form.
type wireValue struct {
	StringValue    *string `json:"stringValue,omitempty"`
	TimestampValue string  `json:"timestampValue,omitempty"`
	NullValue      *string `json:"nullValue,omitempty"`
}

type wireDocument struct {
	Name   string               `json:"name,omitempty"`
	Fields map[string]wireValue `json:"fields"`
}

func stringValue(s string) wireValue {
	return wireValue{StringValue: &s}
}

// toDocument builds the Firestore document for c. Documents are assembled
// in their JSON wire form and decoded into the generated type.
func toDocument(c *Choice) (*firestore.Document, error) {
	null := "NULL_VALUE"
	fields := map[string]wireValue{
		"userTone":  stringValue(c.UserTone),
		"timestamp": {TimestampValue: c.Timestamp.UTC().Format(time.RFC3339Nano)},
	}
	if c.AITone != "" {
		fields["aiTone"] = stringValue(c.AITone)
	} else {
		fields["aiTone"] = wireValue{NullValue: &null}
	}
	for k, v := range map[string]string{
		"aiText":   c.AIText,
		"provider": c.Provider,
		"mode":     c.Mode,
		"imageRef": c.ImageRef,
	} {
		if v != "" {
			fields[k] = stringValue(v)
		}
	}

	data, err := json.Marshal(wireDocument{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("choices: encode document: %w", err)
	}
	var doc firestore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("choices: encode document: %w", err)
	}
	return &doc, nil
}

func fromDocument(doc *firestore.Document) (*Choice, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("choices: decode document: %w", err)
	}
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("choices: decode document: %w", err)
	}

	str := func(k string) string {
		if v, ok := w.Fields[k]; ok && v.StringValue != nil {
			return *v.StringValue
		}
		return ""
	}

	c := &Choice{
		ID:       path.Base(w.Name),
		UserTone: str("userTone"),
		AITone:   str("aiTone"),
		AIText:   str("aiText"),
		Provider: str("provider"),
		Mode:     str("mode"),
		ImageRef: str("imageRef"),
	}
	if ts := w.Fields["timestamp"].TimestampValue; ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("choices: decode timestamp: %w", err)
		}
		c.Timestamp = t
	}
	return c, nil
}

var _ Store = (*Firestore)(nil)
