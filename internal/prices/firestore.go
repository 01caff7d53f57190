package prices

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// PriceDocument is one Firestore document per trading date.
type PriceDocument struct {
	Date   string             `firestore:"date"`
	Prices map[string]float64 `firestore:"prices"`
}

// FirestoreSource reads the price table from a Firestore collection.
type FirestoreSource struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreSource(ctx context.Context, projectID, collection string) (*FirestoreSource, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreSource{client: client, collection: collection}, nil
}

func (s *FirestoreSource) Load(ctx context.Context) (*Table, error) {
	snaps, err := s.client.Collection(s.collection).OrderBy("date", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.collection, err)
	}

	docs := make([]PriceDocument, 0, len(snaps))
	for _, snap := range snaps {
		var doc PriceDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", snap.Ref.ID, err)
		}
		docs = append(docs, doc)
	}
	return TableFromDocuments(docs)
}

// Put stores the prices of one date, replacing any existing document for it.
func (s *FirestoreSource) Put(ctx context.Context, doc PriceDocument) error {
	if _, err := parseDate(doc.Date); err != nil {
		return err
	}
	_, err := s.client.Collection(s.collection).Doc(doc.Date).Set(ctx, doc)
	return err
}

// Store writes one document per date of t.
func (s *FirestoreSource) Store(ctx context.Context, t *Table) (int, error) {
	n := 0
	for _, doc := range DocumentsFromTable(t) {
		if err := s.Put(ctx, doc); err != nil {
			return n, fmt.Errorf("put %s: %w", doc.Date, err)
		}
		n += len(doc.Prices)
	}
	return n, nil
}

// Close closes the Firestore client
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}

// TableFromDocuments pivots per-date documents into a table.
func TableFromDocuments(docs []PriceDocument) (*Table, error) {
	var obs []Observation
	for _, doc := range docs {
		d, err := parseDate(doc.Date)
		if err != nil {
			return nil, err
		}
		for sym, p := range doc.Prices {
			obs = append(obs, Observation{Date: d, Symbol: sym, Price: p})
		}
	}
	return FromObservations(obs), nil
}
