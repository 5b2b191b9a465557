package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aegish-sh/aegish/internal/audit"
	"github.com/aegish-sh/aegish/internal/config"
	"github.com/aegish-sh/aegish/internal/providers"
	"github.com/aegish-sh/aegish/internal/sandbox"
	"github.com/aegish-sh/aegish/internal/shell"
	"github.com/aegish-sh/aegish/internal/validator"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.New(configPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if ok, msg := cfg.ValidateCredentials(); !ok {
		return fmt.Errorf("%s", msg)
	}
	if ok, msg := cfg.ValidateSandboxLibrary(); !ok {
		return fmt.Errorf("%s", msg)
	}
	if ok, msg := cfg.ValidateShellBinary(); !ok {
		return fmt.Errorf("%s", msg)
	}

	ctx := context.Background()
	shutdownTracing := setupTracing(ctx, logger)

	cfg.WatchForTampering(ctx, configPath)

	registry := buildRegistry(cfg)
	chain := buildChain(cfg, registry)

	healthCtx, healthCancel := context.WithTimeout(ctx, 10*time.Second)
	health := chain.HealthCheck(healthCtx, 5*time.Second)
	healthCancel()

	processEnv := os.Environ()

	vcfg := validator.Config{
		VarCmdAction:        string(cfg.VarCmdAction()),
		MaxCommandLength:    cfg.MaxCommandLength(),
		ResolverMaxDepth:    cfg.ResolverMaxDepth(),
		ResolverTimeout:     time.Duration(cfg.ResolverTimeoutSeconds()) * time.Second,
		FailMode:            string(cfg.FailMode()),
		ProviderTimeout:     time.Duration(cfg.LLMTimeout()) * time.Second,
		SystemPromptPreface: providers.BuildSystemPrompt(string(cfg.Role())),
	}

	exec := sandbox.New(cfg, processEnv).WithPathRules(sandbox.PathRuleSet{
		Allow: cfg.LandlockAllowPaths(),
		Deny:  cfg.LandlockDenyPaths(),
	})

	v := validator.New(vcfg, chain, exec.Execute, processEnv)

	auditLog := audit.Open(cfg.IsProduction())

	var descriptors []shell.Descriptor
	for _, entry := range cfg.ModelChain() {
		d := providers.ParseDescriptor(entry)
		err, probed := health[d.Provider]
		descriptors = append(descriptors, shell.Descriptor{Name: d.String(), Available: probed && err == nil})
	}

	loop := shell.New(v, exec, auditLog, cfg.IsProduction(), string(cfg.FailMode()), descriptors)
	loop.Banner()
	code := loop.Run(ctx)
	auditLog.Close()
	shutdownTracing(context.Background())
	os.Exit(code)
	return nil
}
