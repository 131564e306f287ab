package cli

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskbot/internal/credential"
	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/theme"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively write the config file and store the bot token",
	RunE:  runSetup,
}

var setupForgetToken bool

func init() {
	setupCmd.Flags().BoolVar(&setupForgetToken, "forget-token", false, "remove the stored bot token from the keyring and exit")
}

// setupForm holds the values bound to the form fields.
type setupForm struct {
	token        string
	botUsername  string
	publicURL    string
	secret       string
	stateBackend string
}

func buildSetupForm(f *setupForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("From @BotFather. Stored in the OS keyring, never in the config file").
				EchoMode(huh.EchoModePassword).
				Value(&f.token).
				Validate(validateRequired("Token")),
			huh.NewInput().
				Title("Bot username").
				Description("Without @. Leave empty to look it up with getMe").
				Placeholder("my_task_bot").
				Value(&f.botUsername),
			huh.NewInput().
				Title("Public URL").
				Description("HTTPS base URL Telegram can reach; leave empty for polling").
				Placeholder("https://bot.example.com").
				Value(&f.publicURL).
				Validate(validateOptionalURL),
			huh.NewInput().
				Title("Webhook secret").
				Description("Optional; checked on every webhook delivery").
				EchoMode(huh.EchoModePassword).
				Value(&f.secret),
			huh.NewSelect[string]().
				Title("Conversation state").
				Options(
					huh.NewOption("SQLite (survives restarts)", model.StateBackendSQLite),
					huh.NewOption("In memory", model.StateBackendMemory),
				).
				Value(&f.stateBackend),
		),
	)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if setupForgetToken {
		ring, err := credential.Open()
		if err != nil {
			return err
		}
		return forgetToken(cmd.OutOrStdout(), ring)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	form := &setupForm{
		botUsername:  cfg.Telegram.BotUsername,
		publicURL:    cfg.Telegram.PublicURL,
		secret:       cfg.Telegram.WebhookSecret,
		stateBackend: cfg.State.Backend,
	}
	if err := buildSetupForm(form).Run(); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}

	form.apply(cfg)

	ring, err := credential.Open()
	if err != nil {
		return err
	}
	if err := credential.Set(ring, credential.TokenKey, strings.TrimSpace(form.token)); err != nil {
		return err
	}
	if err := model.SaveConfig(configPath, cfg); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Configuration saved to"), configPath)
	return nil
}

func forgetToken(w io.Writer, ring credential.Ring) error {
	if err := credential.Delete(ring, credential.TokenKey); err != nil {
		return err
	}
	fmt.Fprintln(w, theme.SuccessStyle.Render("Bot token removed from the keyring"))
	return nil
}

// apply copies the form values onto cfg.
func (f *setupForm) apply(cfg *model.AppConfig) {
	cfg.Telegram.BotUsername = strings.TrimPrefix(strings.TrimSpace(f.botUsername), "@")
	cfg.Telegram.PublicURL = strings.TrimRight(strings.TrimSpace(f.publicURL), "/")
	cfg.Telegram.WebhookSecret = strings.TrimSpace(f.secret)
	if f.stateBackend != "" {
		cfg.State.Backend = f.stateBackend
	}
	if cfg.Telegram.PublicURL != "" && cfg.Attachments.PublicURL == "" {
		cfg.Attachments.PublicURL = cfg.Telegram.PublicURL + "/attachments"
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" || parsed.Host == "" {
		return fmt.Errorf("URL must be https with a host (e.g., https://bot.example.com)")
	}
	return nil
}
