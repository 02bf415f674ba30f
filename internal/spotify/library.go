package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/temerold/heart-all/internal/shared"
)

// SaveTracks adds up to [BatchLimit] tracks to the user's library ("liked
// songs"). The endpoint is idempotent: saving an already saved track is a
// no-op success.
func (c *Client) SaveTracks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("no track IDs provided")
	}
	if len(ids) > BatchLimit {
		return fmt.Errorf("maximum %d track IDs allowed per save request", BatchLimit)
	}

	body := map[string][]string{"ids": ids}
	if err := c.doRequest(ctx, http.MethodPut, "/me/tracks", body, nil); err != nil {
		return err
	}
	return nil
}

// ContainsTracks reports, per ID and in order, whether each of up to
// [BatchLimit] tracks is already present in the user's library.
func (c *Client) ContainsTracks(ctx context.Context, ids []string) ([]bool, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no track IDs provided")
	}
	if len(ids) > BatchLimit {
		return nil, fmt.Errorf("maximum %d track IDs allowed per contains request", BatchLimit)
	}

	endpoint := fmt.Sprintf("/me/tracks/contains?ids=%s", url.QueryEscape(strings.Join(ids, ",")))

	var contained []bool
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &contained); err != nil {
		return nil, err
	}

	if len(contained) != len(ids) {
		return nil, fmt.Errorf("%w: contains response has %d entries for %d ids",
			shared.ErrAPIRequest, len(contained), len(ids))
	}

	return contained, nil
}
