package abi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
)

// Parse decodes a JSON ABI
func Parse(raw json.RawMessage) (*abi.ABI, error) {
	if len(raw) == 0 {
		return &abi.ABI{}, nil
	}
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return &parsed, nil
}

// ConvertArgs turns manifest values (numbers, decimal or hex strings, nested lists)
// into the Go types go-ethereum expects for each constructor input
func ConvertArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("%w: constructor takes %d arguments, got %d", domain.ErrInvalidArgs, len(inputs), len(args))
	}

	out := make([]any, len(args))
	for i, input := range inputs {
		v, err := convert(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("%w: argument %s (%s): %v", domain.ErrInvalidArgs, name, input.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

// PackConstructor ABI-encodes the constructor arguments (without bytecode)
func PackConstructor(parsed *abi.ABI, args []any) ([]byte, error) {
	converted, err := ConvertArgs(parsed.Constructor.Inputs, args)
	if err != nil {
		return nil, err
	}
	if len(converted) == 0 {
		return nil, nil
	}
	packed, err := parsed.Pack("", converted...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgs, err)
	}
	return packed, nil
}

func convert(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)

	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(b) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, fmt.Errorf("expected bool, got %v", v)

	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil

	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			if !common.IsHexAddress(a) {
				return nil, fmt.Errorf("invalid address %q", a)
			}
			return common.HexToAddress(a), nil
		}
		return nil, fmt.Errorf("expected address, got %T", v)

	case abi.BytesTy:
		return toBytes(v)

	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("value has %d bytes, type holds %d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list, got %T", v)
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
		}

		var list reflect.Value
		if t.T == abi.SliceTy {
			list = reflect.MakeSlice(t.GetType(), len(items), len(items))
		} else {
			list = reflect.New(t.GetType()).Elem()
		}
		for i, item := range items {
			elem, err := convert(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list.Index(i).Set(reflect.ValueOf(elem))
		}
		return list.Interface(), nil

	default:
		return nil, fmt.Errorf("unsupported type %s", t.String())
	}
}

// sizedInt returns n as the Go type go-ethereum uses for t: a fixed-width integer up to 64 bits, *big.Int above
func sizedInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for unsigned type", n)
	}
	bits, limit := n.BitLen(), t.Size
	if t.T == abi.IntTy {
		// two's complement: one bit for the sign, and -2^(size-1) still fits
		limit--
		if n.Sign() < 0 {
			bits = new(big.Int).Add(n, big.NewInt(1)).BitLen()
		}
	}
	if bits > limit {
		return nil, fmt.Errorf("value %s overflows %s", n, t.String())
	}

	goType := t.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		return n, nil
	}

	v := reflect.New(goType).Elem()
	if t.T == abi.UintTy {
		v.SetUint(n.Uint64())
	} else {
		v.SetInt(n.Int64())
	}
	return v.Interface(), nil
}

// maxExactFloat is the first integer a float64 cannot tell apart from its neighbour
const maxExactFloat = 1 << 53

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return new(big.Int).Set(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("non-integral number %v", n)
		}
		// beyond 2^53 the value may already have been rounded
		if math.Abs(n) >= maxExactFloat {
			return nil, fmt.Errorf("number %v is too large to be exact, write it as an integer or a string", n)
		}
		bf := new(big.Float).SetFloat64(n)
		i, _ := bf.Int(nil)
		return i, nil
	case json.Number:
		return parseInteger(n.String())
	case string:
		return parseInteger(n)
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

func parseInteger(s string) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		if !strings.HasPrefix(b, "0x") {
			return nil, fmt.Errorf("expected 0x-prefixed hex, got %q", b)
		}
		decoded, err := hexutil.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %v", b, err)
		}
		return decoded, nil
	}
	return nil, fmt.Errorf("expected bytes, got %T", v)
}
