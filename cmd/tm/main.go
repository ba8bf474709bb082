package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"taskmind/internal/config"
	"taskmind/internal/db"
	"taskmind/internal/domain"
	"taskmind/internal/engine"
	"taskmind/internal/extract"
	"taskmind/internal/llm"
	"taskmind/internal/migrate"
	"taskmind/internal/notify"
	"taskmind/internal/repo"
	"taskmind/internal/server"

	"github.com/google/uuid"
)

var rootCmd = &cobra.Command{
	Use:   "tm",
	Short: "Taskmind CLI",
	Long: `Taskmind is the AI assistant backend for a project management tool.
It turns chat conversations into projects and tasks:
- Chat: the assistant answers with a configured AI model, falling back
  through a model chain when a model is over quota or broken.
- Extraction: project and task fields are pulled from the conversation,
  so "create a project (Apollo, 10 jan, Engineering)" just works.
- Whitelist: only manually verified models are offered or accepted.
- Workspace: the .taskmind directory holds the SQLite database;
  taskmind.yml holds model routing and server settings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKMIND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("tenant", "demo", "tenant identifier")
	rootCmd.PersistentFlags().String("user", "", "acting user id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage taskmind.yml",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default taskmind.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate taskmind.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List selectable AI models",
		Long:  "Fetches the provider catalog and shows the models that pass the whitelist, sorted by display name.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				models, err := e.ListModels(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(models)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Live"})
				for _, m := range models {
					tw.AppendRow(table.Row{m.ID, m.DisplayName, m.IsLive})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func chatCmd() *cobra.Command {
	var conversationID, model string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Chat(ctx, engine.ChatOptions{
					TenantID:       viper.GetString("tenant"),
					UserID:         actingUser(),
					ConversationID: conversationID,
					Message:        args[0],
					Model:          model,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("[%s] %s\n", res.Model, res.Reply)
				if len(res.Missing) > 0 {
					fmt.Printf("missing fields: %s\n", strings.Join(res.Missing, ", "))
				}
				if res.Project != nil {
					fmt.Printf("created project %s (%s)\n", res.Project.Name, res.Project.ID)
				}
				if res.Task != nil {
					fmt.Printf("created task %s (%s)\n", res.Task.Title, res.Task.ID)
				}
				fmt.Printf("conversation: %s\n", res.ConversationID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	cmd.Flags().StringVar(&model, "model", "", "model id (must be whitelisted; empty uses the default)")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx, viper.GetString("tenant"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Deadline", "AI"})
				for _, p := range items {
					deadline := ""
					if p.Deadline != nil {
						deadline = *p.Deadline
					}
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, deadline, p.AIGenerated})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.TenantID = viper.GetString("tenant")
			opts.ActorID = actingUser()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Deadline, "deadline", "", "deadline (free-form date)")
	cmd.Flags().StringVar(&opts.WorkspaceName, "workspace-name", "", "workspace name")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (low, medium, high, urgent)")
	cmd.Flags().StringArrayVar(&opts.TeamMembers, "member", []string{}, "team member name or email (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskListCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTasks(ctx, viper.GetString("tenant"), projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Due", "Assignees"})
				for _, t := range items {
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, due, strings.Join(t.AssigneeIDs, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id filter")
	return cmd
}

// extractCmd runs the extractors over a single message without touching the
// database, for checking what the assistant would pull out of a phrasing.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [project|task] <text>",
		Short: "Dry-run field extraction on a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages := []domain.Message{{Role: "user", Content: args[1]}}
			dates := extract.DateNormalizer{}
			switch args[0] {
			case "project":
				draft := extract.ProjectExtractor{Dates: dates}.Extract(messages)
				return printJSON(map[string]any{
					"draft": draft,
					"check": extract.CheckProject(draft, 1),
				})
			case "task":
				draft := extract.TaskExtractor{Dates: dates}.Extract(messages)
				out := map[string]any{
					"draft": draft,
					"check": extract.CheckTask(draft, 1),
				}
				if draft.Assignee.Kind != extract.AssigneeNone {
					out["assignee"] = draft.Assignee.Value
				}
				return printJSON(out)
			default:
				return fmt.Errorf("unknown kind %q (want project or task)", args[0])
			}
		},
	}
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a demo tenant with workspaces, users and a sprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID := viper.GetString("tenant")
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				now := time.Now().UTC().Format(time.RFC3339)
				if err := r.InsertTenant(ctx, domain.Tenant{ID: tenantID, Name: "Demo Tenant", CreatedAt: now}); err != nil {
					return err
				}
				workspaces := []domain.Workspace{
					{ID: uuid.New().String(), TenantID: tenantID, Name: "Engineering", IsDefault: true, CreatedAt: now},
					{ID: uuid.New().String(), TenantID: tenantID, Name: "Marketing", CreatedAt: now},
				}
				for _, w := range workspaces {
					if err := r.InsertWorkspace(ctx, w); err != nil {
						return err
					}
				}
				users := []domain.User{
					{ID: uuid.New().String(), TenantID: tenantID, FullName: "Alice Martin", Email: "alice@example.com"},
					{ID: uuid.New().String(), TenantID: tenantID, FullName: "Bob Stone", Email: "bob@example.com"},
					{ID: uuid.New().String(), TenantID: tenantID, FullName: "Carol Diaz", Email: "carol@example.com"},
				}
				for _, u := range users {
					if err := r.InsertUser(ctx, u); err != nil {
						return err
					}
				}
				ws := workspaces[0].ID
				project := domain.Project{
					ID:          uuid.New().String(),
					TenantID:    tenantID,
					WorkspaceID: &ws,
					Name:        "Onboarding",
					Priority:    "medium",
					Status:      "active",
					ManagerID:   users[0].ID,
					CreatedAt:   now,
				}
				if err := r.InsertProject(ctx, project); err != nil {
					return err
				}
				sprint := domain.Sprint{
					ID:        uuid.New().String(),
					TenantID:  tenantID,
					ProjectID: project.ID,
					Name:      "Sprint 1",
					CreatedAt: now,
				}
				if err := r.InsertSprint(ctx, sprint); err != nil {
					return err
				}
				fmt.Printf("Seeded tenant %s: %d workspaces, %d users, project %q\n",
					tenantID, len(workspaces), len(users), project.Name)
				fmt.Printf("Acting user for --user: %s (%s)\n", users[0].ID, users[0].FullName)
				return nil
			})
		},
	}
	return cmd
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			secret := jwtSecret(cfg)
			if secret == "" {
				return fmt.Errorf("no JWT secret; set server.jwt_secret or TASKMIND_JWT_SECRET")
			}
			user := actingUser()
			if user == "" {
				return fmt.Errorf("--user required")
			}
			token, err := server.IssueToken(secret, viper.GetString("tenant"), user, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			secret := jwtSecret(cfg)
			if secret == "" {
				return fmt.Errorf("no JWT secret; set server.jwt_secret or TASKMIND_JWT_SECRET")
			}
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			provider := llm.NewGeminiClient(geminiAPIKey(), time.Duration(cfg.AI.RequestTimeout)*time.Second)
			notifier := notify.NewRelayNotifier(cfg.Notify.EmailRelayURL, cfg.Notify.TimeoutSeconds, logger)
			e := engine.New(conn, cfg, logger, provider, notifier)
			defer e.Effects.Close()
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: cfg.Server.BasePath,
				Auth:     server.AuthConfig{JWTSecret: secret},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Taskmind API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	provider := llm.NewGeminiClient(geminiAPIKey(), time.Duration(cfg.AI.RequestTimeout)*time.Second)
	notifier := notify.NewRelayNotifier(cfg.Notify.EmailRelayURL, cfg.Notify.TimeoutSeconds, zap.NewNop())
	e := engine.New(conn, cfg, zap.NewNop(), provider, notifier)
	defer e.Effects.Close()
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func actingUser() string {
	return strings.TrimSpace(viper.GetString("user"))
}

func geminiAPIKey() string {
	return os.Getenv("TASKMIND_GEMINI_API_KEY")
}

func jwtSecret(cfg *config.Config) string {
	if s := os.Getenv("TASKMIND_JWT_SECRET"); s != "" {
		return s
	}
	return cfg.Server.JWTSecret
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
