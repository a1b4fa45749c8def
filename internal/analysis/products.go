package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonesrussell/regradar/internal/domain"
)

// emptyProductContext is what the analyzer receives when the user has no
// products or the portfolio cannot be loaded.
const emptyProductContext = "[]"

// ProductStore is the subset of the product repository the orchestrator needs.
type ProductStore interface {
	ListByUser(ctx context.Context, userID int64) ([]*domain.UserProduct, error)
}

// productInfo is the wire shape one product takes in the analyzer
// prompt: only the attributes it scores against, no row identifiers.
type productInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Features string `json:"features"`
}

// productContext serializes the user's product portfolio for the
// analyzer. An empty portfolio yields "[]" so the analyzer still runs,
// it just scores relevance without product context.
func productContext(ctx context.Context, products ProductStore, userID int64) (string, error) {
	list, err := products.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load product context: %w", err)
	}

	infos := make([]productInfo, 0, len(list))
	for _, product := range list {
		infos = append(infos, productInfo{
			Name:     product.Name,
			Type:     product.Type,
			Features: product.Features,
		})
	}

	data, err := json.Marshal(infos)
	if err != nil {
		return "", fmt.Errorf("failed to serialize product context: %w", err)
	}

	return string(data), nil
}
