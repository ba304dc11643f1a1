package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/kafka"
)

// IndexRequest is the payload on the index-requests topic. It carries the
// same body as POST /api/v1/index.
type IndexRequest struct {
	Model    string           `json:"model"`
	Products []map[string]any `json:"products"`
}

// HandleIndexRequest rebuilds the snapshot for each message. Malformed
// requests are logged and committed so they are not redelivered; other
// failures are returned and the message stays uncommitted.
func HandleIndexRequest(svc *Service) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		log := svc.logger.With("source", "kafka", "key", string(key))
		req, err := kafka.DecodeJSON[IndexRequest](value)
		if err != nil {
			log.Error("dropping undecodable index request", "error", err)
			return nil
		}
		items, err := catalog.ItemsFromRecords(req.Products)
		if err != nil {
			log.Error("dropping invalid index request", "error", err)
			return nil
		}
		if _, err := svc.Build(ctx, req.Model, items, "kafka"); err != nil {
			if isPermanent(err) {
				log.Error("dropping rejected index request", "error", err)
				return nil
			}
			return fmt.Errorf("building index from kafka request: %w", err)
		}
		return nil
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, retrieval.ErrUnknownModel) ||
		errors.Is(err, retrieval.ErrMissingID) ||
		errors.Is(err, retrieval.ErrDuplicateID)
}
