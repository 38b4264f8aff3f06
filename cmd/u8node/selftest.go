package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cvsouth/u8node/async"
	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/keyaddr"
	"github.com/cvsouth/u8node/crypto/pbkdf2"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/crypto/safe58"
	"github.com/cvsouth/u8node/crypto/streebog"
	"github.com/cvsouth/u8node/crypto/symmetric"
)

type checkResult struct {
	name string
	err  error
}

func newSelftestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in Serializer/CryptoKit/AsyncRuntime checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, logFile := setupLogging()
			defer func() { _ = logFile.Close() }()

			results := runSelftest(logger)
			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Printf("%s %s: %v\n", color.RedString("FAIL"), r.name, r.err)
				} else {
					fmt.Printf("%s %s\n", color.GreenString("PASS"), r.name)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d/%d checks failed", failed, len(results))
			}
			fmt.Println(color.GreenString("all %d checks passed", len(results)))
			return nil
		},
	}
}

func runSelftest(logger *slog.Logger) []checkResult {
	return []checkResult{
		{"serializer round-trip", checkSerializer()},
		{"hashfamily digest", checkHashfamily()},
		{"streebog digest", checkStreebog()},
		{"safe58 round-trip", checkSafe58()},
		{"rsakey sign/verify", checkRSAKey()},
		{"keyaddr derivation", checkKeyAddr()},
		{"symmetric key round-trip", checkSymmetric()},
		{"pbkdf2 derivation", checkPBKDF2()},
		{"async loop dispatch", checkAsyncLoop(logger)},
	}
}

func checkSerializer() error {
	m := boss.NewMap()
	m.Set("name", boss.String("widget"))
	m.Set("count", boss.Int(7))
	encoded, err := boss.Encode(m)
	if err != nil {
		return err
	}
	decoded, err := boss.DecodeBytes(encoded)
	if err != nil {
		return err
	}
	back, ok := decoded.(*boss.Map)
	if !ok || !back.Equal(m) {
		return fmt.Errorf("round-tripped map did not match the original")
	}
	return nil
}

func checkHashfamily() error {
	digest, err := hashfamily.Digest(hashfamily.SHA3_512, []byte("u8node"))
	if err != nil {
		return err
	}
	if len(digest) != hashfamily.SHA3_512.Size() {
		return fmt.Errorf("digest length = %d, want %d", len(digest), hashfamily.SHA3_512.Size())
	}
	return nil
}

func checkStreebog() error {
	if len(streebog.Hash512([]byte("u8node"))) != 64 {
		return fmt.Errorf("Hash512 produced an unexpected length")
	}
	if len(streebog.Hash256([]byte("u8node"))) != 32 {
		return fmt.Errorf("Hash256 produced an unexpected length")
	}
	return nil
}

func checkSafe58() error {
	original := []byte("u8node selftest payload")
	encoded := safe58.Encode(original)
	decoded, err := safe58.Decode(encoded)
	if err != nil {
		return err
	}
	if string(decoded) != string(original) {
		return fmt.Errorf("round-tripped payload did not match the original")
	}
	return nil
}

func checkRSAKey() error {
	key, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		return err
	}
	msg := []byte("u8node selftest")
	sig, err := key.Sign(msg, hashfamily.SHA3_512)
	if err != nil {
		return err
	}
	if !key.Verify(msg, sig, hashfamily.SHA3_512) {
		return fmt.Errorf("signature failed to verify")
	}
	return nil
}

func checkKeyAddr() error {
	key, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		return err
	}
	addr, err := keyaddr.From(key, false)
	if err != nil {
		return err
	}
	if !addr.Match(key) {
		return fmt.Errorf("derived address does not match its own key")
	}
	return nil
}

func checkSymmetric() error {
	key, err := symmetric.Generate()
	if err != nil {
		return err
	}
	plaintext := []byte("u8node selftest")
	envelope, err := key.Encrypt(plaintext)
	if err != nil {
		return err
	}
	decrypted, err := key.Decrypt(envelope)
	if err != nil {
		return err
	}
	if string(decrypted) != string(plaintext) {
		return fmt.Errorf("round-tripped plaintext did not match the original")
	}
	return nil
}

func checkPBKDF2() error {
	derived, err := pbkdf2.Derive([]byte("password"), []byte("salt1234"), pbkdf2.MinIterations, 32, pbkdf2.PRFHMACSHA256)
	if err != nil {
		return err
	}
	if len(derived) != 32 {
		return fmt.Errorf("derived key length = %d, want 32", len(derived))
	}
	return nil
}

func checkAsyncLoop(logger *slog.Logger) error {
	loop := async.NewLoop(logger)
	defer loop.Close()

	future, resolve := async.NewFuture[int]()
	loop.Submit(func() { resolve(42, nil) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	value, err := future.Wait(ctx)
	if err != nil {
		return err
	}
	if value != 42 {
		return fmt.Errorf("loop-dispatched future resolved to %d, want 42", value)
	}
	return nil
}
