package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/internal/logging"
)

// maxSparsity drops listings where too many cells are reported empty;
// such datasets profile as all missing_data and pollute search.
const maxSparsity = 0.9

const socrataPageSize = 100

// Socrata is a ports.IncrementalSource over a Socrata open-data domain,
// listed through the discovery API.
type Socrata struct {
	identifier string
	domain     string
	apiURL     string
	appToken   string
	interval   time.Duration
	http       *http.Client
	log        *logging.Logger
}

// NewSocrata creates a source for one Socrata domain, listed through
// the public discovery endpoint.
func NewSocrata(domain, appToken string, interval time.Duration) *Socrata {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Socrata{
		identifier: core.EncodeSourceName("socrata." + domain),
		domain:     domain,
		apiURL:     "https://api.us.socrata.com/api/catalog/v1",
		appToken:   appToken,
		interval:   interval,
		http:       &http.Client{Timeout: 2 * time.Minute},
		log:        logging.NewDefaultLogger("socrata"),
	}
}

// Identifier implements ports.IncrementalSource
func (s *Socrata) Identifier() string {
	return s.identifier
}

// CheckInterval implements ports.IncrementalSource
func (s *Socrata) CheckInterval() time.Duration {
	return s.interval
}

type socrataPage struct {
	Results []struct {
		Resource struct {
			ID              string    `json:"id"`
			Name            string    `json:"name"`
			Description     string    `json:"description"`
			UpdatedAt       time.Time `json:"updatedAt"`
			ColumnsName     []string  `json:"columns_name"`
			ColumnsDatatype []string  `json:"columns_datatype"`
			// Per-column non-null counts from cachedContents.
			ColumnsNonNull []int64 `json:"columns_non_null"`
			RowCount       int64   `json:"row_count"`
		} `json:"resource"`
		Permalink string `json:"permalink"`
	} `json:"results"`
	ResultSetSize int64 `json:"resultSetSize"`
}

// ListDatasets implements ports.IncrementalSource. Listings with more
// than maxSparsity empty cells are skipped.
func (s *Socrata) ListDatasets(ctx context.Context) ([]profile.DatasetDescriptor, error) {
	var descriptors []profile.DatasetDescriptor
	for offset := 0; ; offset += socrataPageSize {
		page, err := s.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Results) == 0 {
			break
		}
		for _, r := range page.Results {
			res := r.Resource
			if sparsity(res.RowCount, len(res.ColumnsName), res.ColumnsNonNull) > maxSparsity {
				s.log.Info("skipping sparse dataset %s", res.ID)
				continue
			}
			updated := res.UpdatedAt
			descriptors = append(descriptors, profile.DatasetDescriptor{
				SourceLocalID: res.ID,
				Name:          res.Name,
				Description:   res.Description,
				SourceURL:     r.Permalink,
				LastModified:  &updated,
				Materialize: profile.Materialize{
					profile.MaterializeIdentifier:    s.identifier,
					profile.MaterializeSourceLocalID: res.ID,
					profile.MaterializeDirectURL: fmt.Sprintf(
						"https://%s/api/views/%s/rows.csv?accessType=DOWNLOAD", s.domain, res.ID),
					profile.MaterializeUpdated: updated.UTC().Format(time.RFC3339),
				},
			})
		}
	}
	return descriptors, nil
}

func (s *Socrata) fetchPage(ctx context.Context, offset int) (*socrataPage, error) {
	params := url.Values{}
	params.Set("domains", s.domain)
	params.Set("only", "datasets")
	params.Set("limit", strconv.Itoa(socrataPageSize))
	params.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	if s.appToken != "" {
		req.Header.Set("X-App-Token", s.appToken)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from catalog", core.ErrSourceProtocol, resp.StatusCode)
	}

	var page socrataPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSourceProtocol, err)
	}
	return &page, nil
}

// sparsity returns the fraction of empty cells the listing reports, or
// 0 when the counts are not published.
func sparsity(rows int64, columns int, nonNull []int64) float64 {
	if rows <= 0 || columns == 0 || len(nonNull) != columns {
		return 0
	}
	total := rows * int64(columns)
	var filled int64
	for _, n := range nonNull {
		filled += n
	}
	if filled > total {
		return 0
	}
	return float64(total-filled) / float64(total)
}

// SetAPIURL overrides the discovery endpoint, for tests
func (s *Socrata) SetAPIURL(apiURL string) {
	s.apiURL = apiURL
}
