package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureStatus(t *testing.T) {
	zero, one := 0, 1

	testCases := []struct {
		s         SignatureStatus
		confirmed bool
		finalized bool
	}{
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "random",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusProcessed,
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &one,
				ConfirmationStatus: "",
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusConfirmed,
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusFinalized,
			},
			confirmed: true,
			finalized: true,
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.confirmed, tc.s.Confirmed())
		assert.Equal(t, tc.finalized, tc.s.Finalized())
	}
}

type rpcRequest struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func newTestRPCServer(t *testing.T, handler func(req rpcRequest) (interface{}, interface{})) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))

		result, rpcErr := handler(req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClient_GetAccountInfo(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	server := newTestRPCServer(t, func(req rpcRequest) (interface{}, interface{}) {
		assert.Equal(t, "getAccountInfo", req.Method)

		var params []interface{}
		require.NoError(t, json.Unmarshal(req.Params, &params))
		if params[0] != base58.Encode(account) {
			return map[string]interface{}{"value": nil}, nil
		}

		return map[string]interface{}{
			"value": map[string]interface{}{
				"lamports":   1234,
				"owner":      base58.Encode(owner),
				"data":       []string{base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), "base64"},
				"executable": false,
			},
		}, nil
	})
	defer server.Close()

	c := New(server.URL)

	info, err := c.GetAccountInfo(account, CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, info.Lamports)
	assert.EqualValues(t, owner, info.Owner)
	assert.Equal(t, []byte{1, 2, 3}, info.Data)

	_, err = c.GetAccountInfo(owner, CommitmentConfirmed)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetProgramAccounts(t *testing.T) {
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	server := newTestRPCServer(t, func(req rpcRequest) (interface{}, interface{}) {
		assert.Equal(t, "getProgramAccounts", req.Method)
		return []interface{}{
			map[string]interface{}{
				"pubkey": base58.Encode(account),
				"account": map[string]interface{}{
					"lamports":   10,
					"owner":      base58.Encode(program),
					"data":       []string{base64.StdEncoding.EncodeToString([]byte{9, 9}), "base64"},
					"executable": false,
				},
			},
		}, nil
	})
	defer server.Close()

	accounts, err := New(server.URL).GetProgramAccounts(program, 0, []byte{9})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.EqualValues(t, account, accounts[0].PublicKey)
	assert.EqualValues(t, program, accounts[0].Owner)
	assert.Equal(t, []byte{9, 9}, accounts[0].Data)
	assert.EqualValues(t, 10, accounts[0].Lamports)
}

func TestClient_SubmitTransaction_ProgramError(t *testing.T) {
	keys := generateKeys(t, 2)
	txn := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), []byte{1}))
	require.NoError(t, txn.Sign(keys[0]))

	server := newTestRPCServer(t, func(req rpcRequest) (interface{}, interface{}) {
		assert.Equal(t, "sendTransaction", req.Method)
		return nil, map[string]interface{}{
			"code":    -32002,
			"message": "Transaction simulation failed",
			"data": map[string]interface{}{
				"err": map[string]interface{}{
					"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6001}},
				},
			},
		}
	})
	defer server.Close()

	sig, err := New(server.URL).SubmitTransaction(txn, CommitmentConfirmed)
	require.Error(t, err)
	assert.Equal(t, txn.Signatures[0], sig)
	assert.True(t, errors.Is(err, CustomError(6001)))

	var txErr *TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, TransactionErrorInstructionError, txErr.ErrorKey())
}

func TestCommitmentFromString(t *testing.T) {
	assert.Equal(t, CommitmentProcessed, CommitmentFromString("processed"))
	assert.Equal(t, CommitmentFinalized, CommitmentFromString("finalized"))
	assert.Equal(t, CommitmentConfirmed, CommitmentFromString("confirmed"))
	assert.Equal(t, CommitmentConfirmed, CommitmentFromString(""))
}

func TestResolveEndpoint(t *testing.T) {
	assert.Equal(t, string(EnvironmentDev), ResolveEndpoint("devnet"))
	assert.Equal(t, string(EnvironmentProd), ResolveEndpoint("mainnet-beta"))
	assert.Equal(t, "http://127.0.0.1:8899", ResolveEndpoint("http://127.0.0.1:8899"))
}
