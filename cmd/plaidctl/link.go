package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/plaid-connect/internal/cli"
	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/Veraticus/plaid-connect/internal/plaid"
	"github.com/Veraticus/plaid-connect/internal/service"
	"github.com/spf13/cobra"
)

// credentialFlags let scripts pass credentials instead of using the form.
type credentialFlags struct {
	username string
	password string
	pin      string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.username, "username", "", "institution username (prompts when empty)")
	cmd.Flags().StringVar(&f.password, "password", "", "institution password")
	cmd.Flags().StringVar(&f.pin, "pin", "", "institution PIN, when required")
}

// linkOptions control how MFA challenges are answered.
type linkOptions struct {
	jq          string
	maxRounds   int
	interactive bool
}

func (o *linkOptions) register(cmd *cobra.Command, interactive bool) {
	cmd.Flags().IntVar(&o.maxRounds, "max-rounds", 10, "give up after this many MFA answers")
	cmd.Flags().BoolVar(&o.interactive, "interactive", interactive, "answer MFA challenges at the terminal")
	cmd.Flags().StringVar(&o.jq, "jq", "", "jq filter applied to a challenge payload that is printed instead of prompted")
}

// submitFunc sends one MFA answer for the in-progress token.
type submitFunc func(ctx context.Context, answer cli.MFAAnswer, accessToken string) *plaid.Payload

func (a *app) credentials(ctx context.Context, inst model.Institution, flags credentialFlags) (string, string, string, error) {
	if flags.username != "" {
		return flags.username, flags.password, flags.pin, nil
	}
	creds, err := a.promptCredentials(ctx, inst)
	if err != nil {
		return "", "", "", err
	}
	return creds.Username, creds.Password, creds.PIN, nil
}

func (a *app) linkCmd() *cobra.Command {
	var (
		creds credentialFlags
		opts  linkOptions
	)

	cmd := &cobra.Command{
		Use:   "link INSTITUTION_ID",
		Short: "Link an institution with your online banking credentials",
		Long: `Link an institution and remember its access token.

Credentials are entered in a form unless --username is given. When the
institution asks for multi-factor verification, the challenge is shown and
answered here; with --interactive=false it is printed and can be answered
later with "plaidctl mfa".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			api, err := a.newAPI()
			if err != nil {
				return err
			}
			store, err := a.storage(ctx)
			if err != nil {
				return err
			}

			result := api.GetInstitution(ctx, args[0])
			if result.Institution == nil {
				return institutionNotFound(args[0], result.Response)
			}
			inst := *result.Institution

			username, password, pin, err := a.credentials(ctx, inst, creds)
			if err != nil {
				return err
			}

			slog.Info("Linking institution", "institution", inst.ID, "type", inst.Type)

			item := model.NewItem(inst, "", model.ItemPendingMFA)
			login := api.Login(ctx, inst, username, password, pin)

			return a.driveLink(ctx, store, &item, login, opts, func(ctx context.Context, answer cli.MFAAnswer, token string) *plaid.Payload {
				return api.SubmitMFA(ctx, answer.Answer, inst, token, answer.Options...)
			})
		},
	}

	creds.register(cmd)
	opts.register(cmd, true)
	return cmd
}

func (a *app) mfaCmd() *cobra.Command {
	var (
		opts       linkOptions
		sendMethod string
		update     bool
	)

	cmd := &cobra.Command{
		Use:   "mfa ACCESS_TOKEN [ANSWER]",
		Short: "Answer a pending MFA challenge",
		Long: `Submit an answer for an item waiting on multi-factor verification.

Use --send-method to pick where a code should be delivered, e.g.
--send-method type=phone, and --update for an item being re-verified.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			api, err := a.newAPI()
			if err != nil {
				return err
			}
			store, err := a.storage(ctx)
			if err != nil {
				return err
			}

			item, err := store.GetItem(ctx, args[0])
			if err != nil {
				return common.NewUserError("unknown item; link it first", err)
			}

			answer := cli.MFAAnswer{}
			if len(args) == 2 {
				answer.Answer = args[1]
			}
			if sendMethod != "" {
				key, value, ok := strings.Cut(sendMethod, "=")
				if !ok {
					return common.NewUserError("--send-method must look like type=phone or mask=xxx-xxx-5309", nil)
				}
				answer.Options = append(answer.Options, plaid.WithSendMethod(key, value))
			}
			if answer.Answer == "" && len(answer.Options) == 0 {
				return common.NewUserError("give an answer or --send-method", nil)
			}

			inst := itemInstitution(*item)
			submit := func(ctx context.Context, answer cli.MFAAnswer, token string) *plaid.Payload {
				return api.SubmitMFA(ctx, answer.Answer, inst, token, answer.Options...)
			}
			if update {
				submit = patchSubmit(api)
			}

			payload := submit(ctx, answer, item.AccessToken)
			if payload == nil {
				return common.NewUserError("no usable response from Plaid", common.ErrProviderUnavailable)
			}

			return a.driveLink(ctx, store, item, payload.Link(), opts, submit)
		},
	}

	opts.register(cmd, false)
	cmd.Flags().StringVar(&sendMethod, "send-method", "", "code delivery choice as key=value")
	cmd.Flags().BoolVar(&update, "update", false, "the item is being re-verified with 'plaidctl update'")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var (
		creds credentialFlags
		opts  linkOptions
	)

	cmd := &cobra.Command{
		Use:   "update ACCESS_TOKEN",
		Short: "Re-verify an item whose credentials or MFA changed",
		Long: `Send new credentials for an existing item. Run this when sync reports
that an item is no longer connected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			api, err := a.newAPI()
			if err != nil {
				return err
			}
			store, err := a.storage(ctx)
			if err != nil {
				return err
			}

			item, err := store.GetItem(ctx, args[0])
			if err != nil {
				return common.NewUserError("unknown item; link it first", err)
			}

			inst := itemInstitution(*item)
			if found := api.GetInstitution(ctx, item.InstitutionID); found.Institution != nil {
				inst = *found.Institution
			}

			username, password, pin, err := a.credentials(ctx, inst, creds)
			if err != nil {
				return err
			}

			slog.Info("Updating item credentials", "institution", item.InstitutionID)

			payload := api.PatchInstitution(ctx, item.AccessToken, username, password, pin)
			if payload == nil {
				return common.NewUserError("no usable response from Plaid", common.ErrProviderUnavailable)
			}

			return a.driveLink(ctx, store, item, payload.Link(), opts, patchSubmit(api))
		},
	}

	creds.register(cmd)
	opts.register(cmd, true)
	return cmd
}

func patchSubmit(api plaid.Updater) submitFunc {
	return func(ctx context.Context, answer cli.MFAAnswer, token string) *plaid.Payload {
		if len(answer.Options) > 0 {
			slog.Warn("Delivery options are not supported while updating; sending the answer only")
		}
		return api.PatchSubmitMFA(ctx, answer.Answer, token)
	}
}

// driveLink follows a linking attempt until it is linked, fails, or a challenge
// is left for the user to answer later. The item is persisted at every step so
// an interrupted attempt can be resumed with "plaidctl mfa".
func (a *app) driveLink(ctx context.Context, store service.Storage, item *model.Item, result plaid.LinkResult, opts linkOptions, submit submitFunc) error {
	for round := 0; ; round++ {
		switch result.State() {
		case plaid.Linked:
			if err := persistItem(ctx, store, item, result.AccessToken, model.ItemLinked); err != nil {
				return err
			}
			a.printf("%s", cli.FormatSuccess(fmt.Sprintf("Linked %s", item.InstitutionName)))
			a.printf("Access token: %s", item.AccessToken)
			return nil

		case plaid.AwaitingMFA:
			challenge := result.Challenge
			if err := persistItem(ctx, store, item, challenge.AccessToken, model.ItemPendingMFA); err != nil {
				return err
			}

			if !opts.interactive {
				return a.printChallenge(item, result, opts.jq)
			}
			if round >= opts.maxRounds {
				return common.NewUserError(fmt.Sprintf("gave up after %d MFA answers; resume with: plaidctl mfa %s", opts.maxRounds, item.AccessToken), nil)
			}

			answer, err := a.mfaPrompter().Answer(ctx, challenge)
			if err != nil {
				return fmt.Errorf("failed to read MFA answer: %w", err)
			}

			payload := submit(ctx, answer, item.AccessToken)
			if payload == nil {
				return common.NewUserError("no usable response from Plaid", common.ErrProviderUnavailable)
			}
			result = payload.Link()

		default:
			if result.Failure != nil {
				return common.NewUserError(fmt.Sprintf("%s was not linked", item.InstitutionName), result.Failure)
			}
			return common.NewUserError("no usable response from Plaid", common.ErrProviderUnavailable)
		}
	}
}

func (a *app) printChallenge(item *model.Item, result plaid.LinkResult, jq string) error {
	if jq != "" && result.Payload != nil {
		filter, err := cli.CompileFilter(jq)
		if err != nil {
			return common.NewUserError("invalid --jq filter", err)
		}
		return cli.RenderJQ(a.out, filter, result.Payload.Raw)
	}

	a.printf("%s", cli.FormatWarning(fmt.Sprintf("%s needs verification (%s)", item.InstitutionName, result.Challenge.Type)))
	a.printf("%s", string(result.Challenge.Prompts))
	a.printf("%s", cli.FormatInfo("Answer with: plaidctl mfa "+item.AccessToken+" ANSWER"))
	return nil
}

// persistItem records the item under token with the given status. A new item
// is inserted; an existing one follows the provider if it issued a new token.
func persistItem(ctx context.Context, store service.Storage, item *model.Item, token string, status model.ItemStatus) error {
	if token == "" {
		token = item.AccessToken
	}
	if token == "" {
		return common.NewUserError("Plaid did not return an access token", nil)
	}

	if item.AccessToken == "" {
		item.AccessToken = token
		item.Status = status
		if err := store.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("failed to save item: %w", err)
		}
		return nil
	}

	if token != item.AccessToken {
		if err := store.ReplaceItemToken(ctx, item.AccessToken, token); err != nil {
			return fmt.Errorf("failed to replace item token: %w", err)
		}
		item.AccessToken = token
	}

	item.Status = status
	if err := store.UpdateItemStatus(ctx, item.AccessToken, status, 0); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// itemInstitution rebuilds the institution fields an MFA submission needs.
func itemInstitution(item model.Item) model.Institution {
	return model.Institution{
		ID:   item.InstitutionID,
		Name: item.InstitutionName,
		Type: item.InstitutionType,
	}
}

func institutionNotFound(id string, meta *plaid.ResponseMeta) error {
	if meta == nil {
		return common.NewUserError("could not reach Plaid to look up "+id, common.ErrProviderUnavailable)
	}
	return common.NewUserError(fmt.Sprintf("institution %s not found (HTTP %d)", id, meta.StatusCode), common.ErrNotFound)
}
