package cli

import (
	"github.com/spf13/cobra"

	"github.com/coregx/polysql"
)

type dialectFlags struct {
	from string
	to   string
}

func (d *dialectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.from, "from", "mysql", "source dialect (mysql|pgsql|sqlite)")
	cmd.Flags().StringVar(&d.to, "to", "pgsql", "target dialect (mysql|pgsql|sqlite)")
}

func (d *dialectFlags) kinds() (polysql.Kind, polysql.Kind, error) {
	from, err := polysql.ParseKind(d.from)
	if err != nil {
		return "", "", err
	}
	to, err := polysql.ParseKind(d.to)
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

// TranslationResult is the JSON payload of the translation commands.
type TranslationResult struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// NewDateFormatCommand creates the dateformat command.
func NewDateFormatCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &dialectFlags{}
	cmd := &cobra.Command{
		Use:   "dateformat <format>",
		Short: "Translate a date format string between dialects",
		Long: `Translate a date format string between dialects.

Tokens without an equivalent in the target dialect are dropped.`,
		Example:       `  polysql dateformat '%Y-%m-%d %H:%i' --from mysql --to pgsql`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslation(newFormatter(rootOpts, cmd), flags, args[0], polysql.TranslateDateFormat)
		},
	}
	flags.register(cmd)
	return cmd
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &dialectFlags{}
	cmd := &cobra.Command{
		Use:           "rewrite <sql>",
		Short:         "Rewrite identifier quoting of a statement for another dialect",
		Example:       "  polysql rewrite 'SELECT `id` FROM `posts`' --from mysql --to pgsql",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslation(newFormatter(rootOpts, cmd), flags, args[0], polysql.RewriteIdentifiers)
		},
	}
	flags.register(cmd)
	return cmd
}

func runTranslation(f *OutputFormatter, flags *dialectFlags, input string, translate func(string, polysql.Kind, polysql.Kind) string) error {
	from, to, err := flags.kinds()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDialect, "invalid dialect", err)
	}
	f.VerboseLog("translating from %s to %s", from, to)

	out := translate(input, from, to)
	return f.Success(TranslationResult{Input: input, Output: out, From: from.String(), To: to.String()}, out)
}

// NewUnescapeCommand creates the unescape command.
func NewUnescapeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unescape <identifier>",
		Short:         "Strip identifier quoting of any dialect",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := polysql.UnescapeIdentifier(args[0])
			return newFormatter(rootOpts, cmd).Success(TranslationResult{Input: args[0], Output: out}, out)
		},
	}
}
