package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/holoauth/internal/audit"
	"github.com/dropDatabas3/holoauth/internal/bootstrap"
	"github.com/dropDatabas3/holoauth/internal/challenge"
	"github.com/dropDatabas3/holoauth/internal/claims"
	"github.com/dropDatabas3/holoauth/internal/config"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/reconcile"
)

// cli guarda el estado compartido entre subcomandos.
type cli struct {
	out        io.Writer
	configPath string
	format     string // text | json

	cfg *config.Config
	res *bootstrap.Resources
}

func (c *cli) load(ctx context.Context) error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "holoauth-cli", Version: cfg.App.Version})
	res, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return err
	}
	c.cfg, c.res = cfg, res
	return nil
}

func (c *cli) close() {
	if c.res != nil {
		c.res.Close()
	}
}

func (c *cli) print(v any) {
	if c.format == "json" {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(c.out, string(b))
		return
	}
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			fmt.Fprintf(c.out, "%s=%v\n", k, t[k])
		}
	default:
		fmt.Fprintln(c.out, v)
	}
}

func (c *cli) codec(ctx context.Context) (challenge.Codec, string, error) {
	ks, err := c.res.KeyStore(ctx)
	if err != nil {
		return nil, "", err
	}
	codec, key, err := bootstrap.Codec(ctx, ks)
	if err != nil {
		return nil, "", err
	}
	return codec, key.Fingerprint(), nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "holoauth",
		Short:         "Herramienta de operación de holoauth (claves, challenges, allowlist)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.configPath, "config", envOr("CONFIG_PATH", "configs/config.yaml"), "ruta a config.yaml (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&c.format, "out", envOr("HOLOAUTH_OUT", "text"), "formato de salida: json|text")

	root.AddCommand(
		newKeyCmd(c),
		newIssueCmd(c),
		newVerifyCmd(c),
		newClassifyCmd(c),
		newAllowlistCmd(c),
		newStatusCmd(c),
	)
	return root
}

func newKeyCmd(c *cli) *cobra.Command {
	keyCmd := &cobra.Command{Use: "key", Short: "Operaciones sobre la clave HMAC"}
	keyCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Materializa la clave en el backend configurado (idempotente)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.load(ctx); err != nil {
				return err
			}
			_, fp, err := c.codec(ctx)
			if err != nil {
				return err
			}
			audit.Log(ctx, audit.EventKeyInit, logger.String("driver", c.cfg.KeyStore.Driver), logger.Key(fp))
			c.print(map[string]any{
				"driver":      c.cfg.KeyStore.Driver,
				"name":        c.cfg.KeyStore.Name,
				"fingerprint": fp,
			})
			return nil
		},
	})
	return keyCmd
}

func newIssueCmd(c *cli) *cobra.Command {
	var (
		email, address, agentID, holoportURL, baseURL string
		fields                                        []string
		validity                                      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Emite una URL de redención firmada (no envía mail)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.load(ctx); err != nil {
				return err
			}
			m := map[string]any{}
			for _, kv := range fields {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("--field espera key=value, recibido %q", kv)
				}
				m[k] = v
			}
			for k, v := range map[string]string{
				claims.FieldEmail:           email,
				claims.FieldAddress:         address,
				claims.FieldDeviceID:        agentID,
				claims.FieldReachabilityURL: holoportURL,
			} {
				if v != "" {
					m[k] = v
				}
			}
			if _, ok := m[claims.FieldEmail]; !ok {
				return fmt.Errorf("--email es requerido")
			}

			base := baseURL
			if base == "" {
				base = c.cfg.Challenge.ResponseBaseURL
			}
			if base == "" {
				return fmt.Errorf("--base-url es requerido (o challenge.response_base_url)")
			}
			if validity <= 0 {
				validity = c.cfg.Challenge.Validity
			}

			codec, _, err := c.codec(ctx)
			if err != nil {
				return err
			}
			u, err := challenge.NewIssuer(codec, validity).Issue(ctx, m, base)
			if err != nil {
				return err
			}
			c.print(u)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&email, "email", "", "email del destinatario")
	f.StringVar(&address, "address", "", "dirección ZeroTier del dispositivo")
	f.StringVar(&agentID, "agent-id", "", "holochain_agent_id (identidad del dispositivo)")
	f.StringVar(&holoportURL, "holoport-url", "", "URL a sondear tras autorizar")
	f.StringVar(&baseURL, "base-url", "", "URL base de redención")
	f.StringArrayVar(&fields, "field", nil, "campo extra key=value (repetible)")
	f.DurationVar(&validity, "validity", 0, "ventana de validez (default challenge.validity)")
	return cmd
}

func newVerifyCmd(c *cli) *cobra.Command {
	var data, signature string
	cmd := &cobra.Command{
		Use:   "verify [url]",
		Short: "Verifica una URL de redención o un par data/signature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.load(ctx); err != nil {
				return err
			}
			codec, _, err := c.codec(ctx)
			if err != nil {
				return err
			}
			r := challenge.NewRedeemer(codec)

			var claim claims.Claim
			switch {
			case len(args) == 1:
				claim, err = r.RedeemURL(args[0])
			case data != "" && signature != "":
				claim, err = r.Redeem(data, signature)
			default:
				return fmt.Errorf("pasar una URL o --data y --signature")
			}
			if err != nil {
				return err
			}

			m := make(map[string]any, len(claim.Fields)+1)
			for k, v := range claim.Fields {
				m[k] = v
			}
			m[claims.FieldValidUntil] = claim.ValidUntil.UTC().Format(time.RFC3339)
			c.print(m)
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "JSON firmado")
	cmd.Flags().StringVar(&signature, "signature", "", "firma base64")
	return cmd
}

func newClassifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <detalle de error>",
		Short: "Muestra el alias de notificación para un texto de error",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.print(reconcile.Classify(strings.Join(args, " ")))
			return nil
		},
	}
}

func newAllowlistCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowlist",
		Short: "Gestiona emails habilitados fuera de los dominios internos",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd.Context()); err != nil {
				return err
			}
			if c.cfg.Allowlist.Driver != "redis" {
				fmt.Fprintln(cmd.ErrOrStderr(), "aviso: allowlist.driver=memory, los cambios no persisten")
			}
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <email>...",
			Args:  cobra.MinimumNArgs(1),
			Short: "Agrega emails",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.res.AllowlistStore().Add(cmd.Context(), args...); err != nil {
					return err
				}
				for _, e := range args {
					audit.Log(cmd.Context(), audit.EventAllowlistAdd, audit.Email(e))
				}
				c.print(fmt.Sprintf("added %d", len(args)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <email>",
			Args:  cobra.ExactArgs(1),
			Short: "Quita un email",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.res.AllowlistStore().Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				audit.Log(cmd.Context(), audit.EventAllowlistRemove, audit.Email(args[0]))
				c.print("removed")
				return nil
			},
		},
		&cobra.Command{
			Use:   "check <email>",
			Args:  cobra.ExactArgs(1),
			Short: "Indica si un email puede pedir un challenge",
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := c.res.Allowlist(cmd.Context())
				if err != nil {
					return err
				}
				ok, err := list.Allowed(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				c.print(map[string]any{"email": args[0], "allowed": ok, "internal": list.IsInternal(args[0])})
				return nil
			},
		},
	)
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	var baseURL string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Consulta /readyz de un servicio en ejecución",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(baseURL, "/")+"/readyz", nil)
			if err != nil {
				return err
			}
			resp, err := (&http.Client{Timeout: timeout}).Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			var v map[string]any
			if json.Unmarshal(body, &v) != nil {
				v = map[string]any{"body": string(body)}
			}
			c.print(v)
			if resp.StatusCode/100 != 2 {
				return fmt.Errorf("status=%d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", envOr("HOLOAUTH_URL", "http://localhost:8080"), "URL base del servicio (env HOLOAUTH_URL)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout del request")
	return cmd
}
