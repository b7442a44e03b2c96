package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calehh/hac-gov/crypto"
	"github.com/calehh/hac-gov/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
)

// sendTx signs body as a typ tx from the key at args.Skey and broadcasts it.
func sendTx(args *txArguments, typ tx.HACTxType, body any) error {
	cli, err := http.New(args.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID
	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return err
	}

	btx := &tx.HACTx{
		Version:   tx.HACTxVersion1,
		Type:      typ,
		Nonce:     args.Nonce,
		Validator: args.Index,
		Tx:        body,
	}
	if typ != tx.HACTxTypeRegister && btx.Nonce == 0 {
		act, err := queryAccount(args.Url, args.Index, "")
		if err != nil {
			return err
		}
		btx.Nonce = act.Nonce
	}
	dat, err := pv.SignTx(chainId, btx)
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	fmt.Printf("type:%v signer:%v nonce:%v\n", typ, pv.Address(), btx.Nonce)
	if args.NoSend {
		fmt.Println(hex.EncodeToString(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	if res.Code != 0 {
		return errors.New(res.Log)
	}
	return nil
}

// abciQuery runs a query and decodes a successful value into v.
func abciQuery(url, path string, data []byte, v any) error {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	res, err := cli.ABCIQuery(context.Background(), path, data)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %s: code %d %s", path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, v)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
