package verification

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	abicodec "github.com/trebuchet-org/treb-deploy/internal/adapters/abi"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// Etherscan submits standard JSON verification requests to an Etherscan compatible API.
// The first Submit for an address sends the source; later calls poll the returned GUID.
type Etherscan struct {
	client      *http.Client
	apiURL      string
	apiKey      string
	explorerURL string
	chainID     uint64
	log         *slog.Logger

	mu    sync.Mutex
	guids map[common.Address]string
}

var _ usecase.VerificationBackend = (*Etherscan)(nil)

// NewEtherscan creates a backend for the configured network's explorer
func NewEtherscan(cfg *config.RuntimeConfig, log *slog.Logger) *Etherscan {
	e := &Etherscan{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:   log.With("component", "etherscan"),
		guids: make(map[common.Address]string),
	}
	if n := cfg.Network; n != nil {
		e.apiURL = n.ExplorerAPIURL
		e.apiKey = n.ExplorerAPIKey
		e.explorerURL = strings.TrimSuffix(n.ExplorerURL, "/")
		e.chainID = n.ChainID
	}
	return e
}

// etherscanResponse represents Etherscan API response
type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Submit sends the verification request or polls the one already in flight
func (e *Etherscan) Submit(ctx context.Context, req usecase.VerificationRequest) (*usecase.VerificationResponse, error) {
	if e.apiURL == "" {
		return nil, fmt.Errorf("%w: no explorer API URL configured", domain.ErrBackendUnavailable)
	}

	e.mu.Lock()
	guid, submitted := e.guids[req.Address]
	e.mu.Unlock()

	if submitted {
		return e.checkStatus(ctx, req.Address, guid)
	}
	return e.submit(ctx, req)
}

func (e *Etherscan) submit(ctx context.Context, req usecase.VerificationRequest) (*usecase.VerificationResponse, error) {
	artifact := req.Artifact
	if !artifact.HasSource() {
		return e.response(req.Address, models.OutcomeFailed, fmt.Sprintf("no build info for %s, cannot submit sources", artifact.FullyQualifiedName())), nil
	}

	var constructorArgs string
	if artifact.ABI != nil {
		packed, err := abicodec.PackConstructor(artifact.ABI, req.ConstructorArgs)
		if err != nil {
			return e.response(req.Address, models.OutcomeFailed, err.Error()), nil
		}
		constructorArgs = hex.EncodeToString(packed)
	}

	compiler := artifact.CompilerVersion
	if compiler != "" && !strings.HasPrefix(compiler, "v") {
		compiler = "v" + compiler
	}

	data := url.Values{}
	data.Set("apikey", e.apiKey)
	data.Set("module", "contract")
	data.Set("action", "verifysourcecode")
	data.Set("contractaddress", req.Address.Hex())
	data.Set("sourceCode", string(artifact.StandardJSONInput))
	data.Set("codeformat", "solidity-standard-json-input")
	data.Set("contractname", artifact.FullyQualifiedName())
	data.Set("compilerversion", compiler)
	data.Set("constructorArguements", constructorArgs) // Note: Etherscan typo

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(nil), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	result, err := e.do(httpReq)
	if err != nil {
		return nil, err
	}

	if result.Status == "1" {
		e.mu.Lock()
		e.guids[req.Address] = result.Result
		e.mu.Unlock()
		e.log.Debug("verification submitted", "address", req.Address.Hex(), "guid", result.Result)
		return e.response(req.Address, models.OutcomePending, "verification submitted"), nil
	}

	return e.interpret(req.Address, result)
}

func (e *Etherscan) checkStatus(ctx context.Context, address common.Address, guid string) (*usecase.VerificationResponse, error) {
	params := url.Values{}
	params.Set("apikey", e.apiKey)
	params.Set("module", "contract")
	params.Set("action", "checkverifystatus")
	params.Set("guid", guid)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint(params), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}

	result, err := e.do(httpReq)
	if err != nil {
		return nil, err
	}

	resp, err := e.interpret(address, result)
	if err == nil && resp.Status != models.OutcomePending {
		e.mu.Lock()
		delete(e.guids, address)
		e.mu.Unlock()
	}
	return resp, err
}

// interpret maps Etherscan's free-text results to an outcome
func (e *Etherscan) interpret(address common.Address, result *etherscanResponse) (*usecase.VerificationResponse, error) {
	msg := strings.ToLower(result.Result)
	switch {
	case strings.Contains(msg, "rate limit"):
		return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, result.Result)
	case strings.Contains(msg, "already verified"), strings.Contains(msg, "pass - verified"):
		return e.response(address, models.OutcomeVerified, result.Result), nil
	case strings.Contains(msg, "pending"), strings.Contains(msg, "in queue"):
		return e.response(address, models.OutcomePending, result.Result), nil
	case strings.Contains(msg, "unable to locate contractcode"):
		// explorer has not indexed the deployment yet
		return e.response(address, models.OutcomePending, result.Result), nil
	case result.Status == "1":
		return e.response(address, models.OutcomeVerified, result.Result), nil
	default:
		return e.response(address, models.OutcomeFailed, result.Result), nil
	}
}

func (e *Etherscan) do(req *http.Request) (*etherscanResponse, error) {
	resp, err := e.client.Do(req) //nolint:gosec // URL is constructed from configured explorer endpoint
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrBackendUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &etherscanResponse{Status: "0", Result: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}, nil
	}

	var result etherscanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", domain.ErrBackendUnavailable, err)
	}
	return &result, nil
}

// endpoint builds the API URL, adding the chain id the v2 multichain API expects
func (e *Etherscan) endpoint(params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if e.chainID != 0 {
		params.Set("chainid", strconv.FormatUint(e.chainID, 10))
	}
	sep := "?"
	if strings.Contains(e.apiURL, "?") {
		sep = "&"
	}
	return e.apiURL + sep + params.Encode()
}

func (e *Etherscan) response(address common.Address, status models.VerificationOutcome, message string) *usecase.VerificationResponse {
	resp := &usecase.VerificationResponse{Status: status, Message: message}
	if e.explorerURL != "" {
		resp.URL = fmt.Sprintf("%s/address/%s#code", e.explorerURL, address.Hex())
	}
	return resp
}
