package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"shopfront/internal/models"
)

const ProductsIndex = "products"

// SearchIndex indexe les produits pour la recherche plein texte.
type SearchIndex struct {
	es    *elasticsearch.Client
	index string
}

type ElasticConfig struct {
	URL      string
	Username string
	Password string
}

func ConnectElastic(cfg ElasticConfig) (*SearchIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	res.Body.Close()

	log.Println("✅ Connecté à Elasticsearch")
	return NewSearchIndex(client, ProductsIndex), nil
}

func NewSearchIndex(es *elasticsearch.Client, index string) *SearchIndex {
	return &SearchIndex{es: es, index: index}
}

type productDocument struct {
	ID          string `json:"id"`
	SellerID    string `json:"seller_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	CreatedAt   string `json:"created_at"`
}

func (s *SearchIndex) Index(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(productDocument{
		ID:          p.ID.String(),
		SellerID:    p.SellerID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: p.ID.String(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("indexation %s: %w", p.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexation %s: %s", p.ID, res.String())
	}
	return nil
}

func (s *SearchIndex) Delete(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{Index: s.index, DocumentID: id.String(), Refresh: "true"}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("désindexation %s: %w", id, err)
	}
	defer res.Body.Close()

	// 404 : déjà absent de l'index
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("désindexation %s: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search retourne les ids des produits correspondant à q, par pertinence.
func (s *SearchIndex) Search(ctx context.Context, q string) ([]uuid.UUID, error) {
	var buf bytes.Buffer
	query := map[string]any{
		"size": 50,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encodage requête: %w", err)
	}

	req := esapi.SearchRequest{Index: []string{s.index}, Body: &buf}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, fmt.Errorf("requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("recherche Elastic (%d): %s", res.StatusCode, body)
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("décodage réponse Elastic: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
