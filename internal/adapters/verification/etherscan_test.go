package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abicodec "github.com/trebuchet-org/treb-deploy/internal/adapters/abi"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

const votingABI = `[{"type":"constructor","inputs":[{"name":"_quorum","type":"uint256"},{"name":"_voters","type":"address[]"}]}]`

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeExplorer answers submissions and status checks from scripted replies
type fakeExplorer struct {
	mu       sync.Mutex
	submit   []reply
	status   []reply
	requests []*http.Request
	forms    []map[string]string
}

type reply struct {
	code int
	body etherscanResponse
}

func ok(status, result string) reply {
	return reply{code: http.StatusOK, body: etherscanResponse{Status: status, Result: result}}
}

func (f *fakeExplorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.Form {
		form[k] = r.Form.Get(k)
	}
	f.requests = append(f.requests, r)
	f.forms = append(f.forms, form)

	var queue *[]reply
	if form["action"] == "verifysourcecode" {
		queue = &f.submit
	} else {
		queue = &f.status
	}
	next := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}

	w.WriteHeader(next.code)
	if next.code == http.StatusOK {
		_ = json.NewEncoder(w).Encode(next.body)
	}
}

func setup(t *testing.T, f *fakeExplorer) *Etherscan {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	cfg := &config.RuntimeConfig{Network: &config.Network{
		Name:           "sepolia",
		ChainID:        11155111,
		ExplorerURL:    "https://sepolia.etherscan.io",
		ExplorerAPIURL: srv.URL + "/v2/api",
		ExplorerAPIKey: "KEY",
	}}
	return NewEtherscan(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func request(t *testing.T) usecase.VerificationRequest {
	parsed, err := abicodec.Parse(json.RawMessage(votingABI))
	require.NoError(t, err)
	return usecase.VerificationRequest{
		Address: contractAddr,
		Artifact: &models.Artifact{
			Name:              "VotingSystem",
			SourceName:        "contracts/VotingSystem.sol",
			ABI:               parsed,
			CompilerVersion:   "0.8.24+commit.e11b9ed9",
			StandardJSONInput: json.RawMessage(`{"language":"Solidity"}`),
		},
		ConstructorArgs: []any{json.Number("100"), []any{"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"}},
	}
}

func TestEtherscanSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("submit then poll until verified", func(t *testing.T) {
		f := &fakeExplorer{
			submit: []reply{ok("1", "guid-123")},
			status: []reply{ok("0", "Pending in queue"), ok("1", "Pass - Verified")},
		}
		e := setup(t, f)

		resp, err := e.Submit(ctx, request(t))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePending, resp.Status)

		form := f.forms[0]
		assert.Equal(t, "solidity-standard-json-input", form["codeformat"])
		assert.Equal(t, "contracts/VotingSystem.sol:VotingSystem", form["contractname"])
		assert.Equal(t, "v0.8.24+commit.e11b9ed9", form["compilerversion"])
		assert.Equal(t, contractAddr.Hex(), form["contractaddress"])
		assert.Equal(t, "11155111", form["chainid"])
		// uint256 100, offset, length 1, deployer
		assert.Equal(t, fmt.Sprintf("%064x", 100), form["constructorArguements"][:64])
		assert.Len(t, form["constructorArguements"], 64*4)

		resp, err = e.Submit(ctx, request(t))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePending, resp.Status)
		assert.Equal(t, "guid-123", f.forms[1]["guid"])

		resp, err = e.Submit(ctx, request(t))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeVerified, resp.Status)
		assert.Equal(t, "https://sepolia.etherscan.io/address/"+contractAddr.Hex()+"#code", resp.URL)
	})

	t.Run("already verified", func(t *testing.T) {
		e := setup(t, &fakeExplorer{submit: []reply{ok("0", "Contract source code already verified")}})
		resp, err := e.Submit(ctx, request(t))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeVerified, resp.Status)
	})

	t.Run("not indexed yet is pending", func(t *testing.T) {
		e := setup(t, &fakeExplorer{submit: []reply{ok("0", "Unable to locate ContractCode at 0x5fbd")}})
		resp, err := e.Submit(ctx, request(t))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePending, resp.Status)
	})

	t.Run("failed verification resubmits next time", func(t *testing.T) {
		f := &fakeExplorer{
			submit: []reply{ok("1", "guid-1")},
			status: []reply{ok("0", "Fail - Unable to verify")},
		}
		e := setup(t, f)

		_, err := e.Submit(ctx, request(t))
		require.NoError(t, err)
		resp, err := e.Submit(ctx, request(t))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFailed, resp.Status)
		assert.Equal(t, "Fail - Unable to verify", resp.Message)

		_, err = e.Submit(ctx, request(t))
		require.NoError(t, err)
		assert.Equal(t, "verifysourcecode", f.forms[2]["action"])
	})

	t.Run("rate limits", func(t *testing.T) {
		e := setup(t, &fakeExplorer{submit: []reply{ok("0", "Max rate limit reached")}})
		_, err := e.Submit(ctx, request(t))
		assert.ErrorIs(t, err, domain.ErrRateLimited)

		e = setup(t, &fakeExplorer{submit: []reply{{code: http.StatusTooManyRequests}}})
		_, err = e.Submit(ctx, request(t))
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("server errors are transient", func(t *testing.T) {
		e := setup(t, &fakeExplorer{submit: []reply{{code: http.StatusBadGateway}}})
		_, err := e.Submit(ctx, request(t))
		assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
		assert.True(t, domain.IsRetryableVerify(err))
	})

	t.Run("missing sources fail without a request", func(t *testing.T) {
		f := &fakeExplorer{submit: []reply{ok("1", "guid")}}
		e := setup(t, f)
		req := request(t)
		req.Artifact.StandardJSONInput = nil

		resp, err := e.Submit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFailed, resp.Status)
		assert.Empty(t, f.requests)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		e := setup(t, &fakeExplorer{})
		e.apiURL = "http://127.0.0.1:1/api"
		_, err := e.Submit(ctx, request(t))
		assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	})
}
