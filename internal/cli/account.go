package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage persistent payment accounts",
	}
	cmd.AddCommand(
		newAccountRegisterCommand(),
		newAccountUpdateCommand(),
		newAccountDeleteCommand(),
		newAccountGetCommand(),
	)
	return cmd
}

func newAccountRegisterCommand() *cobra.Command {
	var (
		ref, fundingLimit               string
		req                             pagacollect.RegisterPersistentPaymentAccountRequest
		creditBankID, creditBankAccount string
		callbackURL                     string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a persistent payment account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := providerClient()
			if err != nil {
				return err
			}
			limit, err := optionalAmount(cmd, "funding-limit", fundingLimit)
			if err != nil {
				return err
			}

			req.ReferenceNumber = referenceOrNew(ref)
			req.CreditBankID = optionalString(cmd, "credit-bank-id", creditBankID)
			req.CreditBankAccountNumber = optionalString(cmd, "credit-bank-account", creditBankAccount)
			req.CallbackURL = optionalString(cmd, "callback-url", callbackURL)
			if req.CallbackURL == nil {
				if url := cfg.Server.CallbackURL(); url != "" {
					req.CallbackURL = &url
				}
			}
			req.FundingTransactionLimit = limit

			result, err := client.RegisterPersistentPaymentAccount(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointRegisterPersistentPaymentAccount, result)
		},
	}

	f := cmd.Flags()
	addReferenceFlag(cmd, &ref)
	f.StringVar(&req.AccountReference, "account-reference", "", "your unique reference for the account")
	f.StringVar(&req.PhoneNumber, "phone", "", "account holder phone number")
	f.StringVar(&req.Email, "email", "", "account holder email")
	f.StringVar(&req.FirstName, "first-name", "", "account holder first name")
	f.StringVar(&req.LastName, "last-name", "", "account holder last name")
	f.StringVar(&req.AccountName, "account-name", "", "name shown for the account")
	f.StringVar(&req.FinancialIdentificationNumber, "fin", "", "financial identification number")
	f.StringVar(&creditBankID, "credit-bank-id", "", "bank id to settle collections into")
	f.StringVar(&creditBankAccount, "credit-bank-account", "", "bank account number to settle collections into")
	f.StringVar(&callbackURL, "callback-url", "", "callback URL (defaults to the service callback)")
	f.StringVar(&fundingLimit, "funding-limit", "", "maximum amount per funding transaction")
	cmd.MarkFlagRequired("account-reference")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("first-name")
	cmd.MarkFlagRequired("last-name")
	return cmd
}

func newAccountUpdateCommand() *cobra.Command {
	var ref, phone, firstName, lastName, accountName, fin, callbackURL, creditBankID, creditBankAccount string

	cmd := &cobra.Command{
		Use:   "update <account-identifier>",
		Short: "Update a persistent payment account",
		Long:  "Update a persistent payment account. Only the flags given are sent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := providerClient()
			if err != nil {
				return err
			}

			result, err := client.UpdatePersistentPaymentAccount(cmd.Context(), &pagacollect.UpdatePersistentPaymentAccountRequest{
				ReferenceNumber:               referenceOrNew(ref),
				AccountIdentifier:             args[0],
				PhoneNumber:                   optionalString(cmd, "phone", phone),
				FirstName:                     optionalString(cmd, "first-name", firstName),
				LastName:                      optionalString(cmd, "last-name", lastName),
				AccountName:                   optionalString(cmd, "account-name", accountName),
				FinancialIdentificationNumber: optionalString(cmd, "fin", fin),
				CallbackURL:                   optionalString(cmd, "callback-url", callbackURL),
				CreditBankID:                  optionalString(cmd, "credit-bank-id", creditBankID),
				CreditBankAccountNumber:       optionalString(cmd, "credit-bank-account", creditBankAccount),
			})
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointUpdatePersistentPaymentAccount, result)
		},
	}

	f := cmd.Flags()
	addReferenceFlag(cmd, &ref)
	f.StringVar(&phone, "phone", "", "new phone number")
	f.StringVar(&firstName, "first-name", "", "new first name")
	f.StringVar(&lastName, "last-name", "", "new last name")
	f.StringVar(&accountName, "account-name", "", "new account name")
	f.StringVar(&fin, "fin", "", "new financial identification number")
	f.StringVar(&callbackURL, "callback-url", "", "new callback URL")
	f.StringVar(&creditBankID, "credit-bank-id", "", "new settlement bank id")
	f.StringVar(&creditBankAccount, "credit-bank-account", "", "new settlement bank account number")
	return cmd
}

func newAccountDeleteCommand() *cobra.Command {
	var ref, reason string

	cmd := &cobra.Command{
		Use:   "delete <account-identifier>",
		Short: "Delete a persistent payment account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := providerClient()
			if err != nil {
				return err
			}
			result, err := client.DeletePersistentPaymentAccount(cmd.Context(), &pagacollect.DeletePersistentPaymentAccountRequest{
				ReferenceNumber:   referenceOrNew(ref),
				AccountIdentifier: args[0],
				Reason:            optionalString(cmd, "reason", reason),
			})
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointDeletePersistentPaymentAccount, result)
		},
	}

	addReferenceFlag(cmd, &ref)
	cmd.Flags().StringVar(&reason, "reason", "", "reason for deleting the account")
	return cmd
}

func newAccountGetCommand() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "get <account-identifier>",
		Short: "Show a persistent payment account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := providerClient()
			if err != nil {
				return err
			}
			result, err := client.GetPersistentPaymentAccount(cmd.Context(), &pagacollect.GetPersistentPaymentAccountRequest{
				ReferenceNumber:   referenceOrNew(ref),
				AccountIdentifier: args[0],
			})
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointGetPersistentPaymentAccount, result)
		},
	}

	addReferenceFlag(cmd, &ref)
	return cmd
}
