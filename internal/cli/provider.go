package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/alexbotov/pagacollect/internal/collections"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

func addReferenceFlag(cmd *cobra.Command, ref *string) {
	cmd.Flags().StringVar(ref, "reference", "", "reference number for this call (generated when empty)")
}

func referenceOrNew(ref string) string {
	if ref == "" {
		return collections.NewReference()
	}
	return ref
}

func parseAmount(name, value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	return amount, nil
}

func optionalAmount(cmd *cobra.Command, name, value string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	amount, err := parseAmount(name, value)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func optionalBool(cmd *cobra.Command, name string, value bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func optionalString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func newBanksCommand() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "banks",
		Short: "List banks supported for collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := providerClient()
			if err != nil {
				return err
			}
			result, err := client.GetBanks(cmd.Context(), &pagacollect.GetBanksRequest{ReferenceNumber: referenceOrNew(ref)})
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointBanks, result)
		},
	}
	addReferenceFlag(cmd, &ref)
	return cmd
}

func newPayCommand() *cobra.Command {
	var (
		ref, amount, currency, expiry, callbackURL  string
		payer                                       pagacollect.Payer
		payee                                       pagacollect.Payee
		payerFeeShare, payeeFeeShare                string
		methods                                     []string
		allowPartial, suppressMessages, bankDetails bool
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Create a payment request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := providerClient()
			if err != nil {
				return err
			}

			value, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			payerShare, err := optionalAmount(cmd, "payer-fee-share", payerFeeShare)
			if err != nil {
				return err
			}
			payeeShare, err := optionalAmount(cmd, "payee-fee-share", payeeFeeShare)
			if err != nil {
				return err
			}
			if currency == "" {
				currency = cfg.Paga.Currency
			}
			if callbackURL == "" {
				callbackURL = cfg.Server.CallbackURL()
			}

			req := &pagacollect.PaymentRequest{
				ReferenceNumber:          referenceOrNew(ref),
				Amount:                   value,
				Currency:                 currency,
				Payer:                    payer,
				Payee:                    payee,
				ExpiryDateTimeUTC:        optionalString(cmd, "expiry", expiry),
				IsSuppressMessages:       optionalBool(cmd, "suppress-messages", suppressMessages),
				PayerCollectionFeeShare:  payerShare,
				PayeeCollectionFeeShare:  payeeShare,
				IsAllowPartialPayments:   optionalBool(cmd, "allow-partial", allowPartial),
				CallBackURL:              callbackURL,
				PaymentMethods:           methods,
				DisplayBankDetailToPayer: optionalBool(cmd, "display-bank-details", bankDetails),
			}

			result, err := client.PaymentRequest(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointPaymentRequest, result)
		},
	}

	f := cmd.Flags()
	addReferenceFlag(cmd, &ref)
	f.StringVar(&amount, "amount", "", "amount to collect")
	f.StringVar(&currency, "currency", "", "currency code (defaults to PAGA_CURRENCY)")
	f.StringVar(&payer.Name, "payer-name", "", "payer name")
	f.StringVar(&payer.Email, "payer-email", "", "payer email")
	f.StringVar(&payer.PhoneNumber, "payer-phone", "", "payer phone number")
	f.StringVar(&payer.BankID, "payer-bank-id", "", "payer bank id")
	f.StringVar(&payee.Name, "payee-name", "", "payee name shown to the payer")
	f.StringVar(&payee.AccountNumber, "payee-account-number", "", "payee Paga account number")
	f.StringVar(&payee.PhoneNumber, "payee-phone", "", "payee phone number")
	f.StringVar(&payee.BankID, "payee-bank-id", "", "payee bank id")
	f.StringVar(&payee.BankAccountNumber, "payee-bank-account", "", "payee bank account number")
	f.StringVar(&payee.FinancialIdentificationNumber, "payee-fin", "", "payee financial identification number")
	f.StringVar(&expiry, "expiry", "", "expiry date time in UTC")
	f.StringVar(&callbackURL, "callback-url", "", "callback URL (defaults to the service callback)")
	f.StringVar(&payerFeeShare, "payer-fee-share", "", "share of the collection fee paid by the payer")
	f.StringVar(&payeeFeeShare, "payee-fee-share", "", "share of the collection fee paid by the payee")
	f.StringSliceVar(&methods, "method", nil, "payment method, repeatable (BANK_TRANSFER, FUNDING_USSD)")
	f.BoolVar(&allowPartial, "allow-partial", false, "allow partial payments")
	f.BoolVar(&suppressMessages, "suppress-messages", false, "suppress provider messages to the payer")
	f.BoolVar(&bankDetails, "display-bank-details", false, "show bank details to the payer")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("payer-name")
	cmd.MarkFlagRequired("payee-name")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <reference>",
		Short: "Check the status of a payment request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := providerClient()
			if err != nil {
				return err
			}
			result, err := client.PaymentStatus(cmd.Context(), &pagacollect.PaymentStatusRequest{ReferenceNumber: args[0]})
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointStatus, result)
		},
	}
}

func newHistoryCommand() *cobra.Command {
	var ref, start, end string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List payment activity in a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := providerClient()
			if err != nil {
				return err
			}
			result, err := client.PaymentHistory(cmd.Context(), &pagacollect.PaymentHistoryRequest{
				ReferenceNumber:  referenceOrNew(ref),
				StartDateTimeUTC: start,
				EndDateTimeUTC:   end,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointHistory, result)
		},
	}

	addReferenceFlag(cmd, &ref)
	cmd.Flags().StringVar(&start, "start", "", "window start in UTC, e.g. 2021-05-13T19:15:22")
	cmd.Flags().StringVar(&end, "end", "", "window end in UTC")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newRefundCommand() *cobra.Command {
	var amount, currency, reason string

	cmd := &cobra.Command{
		Use:   "refund <reference>",
		Short: "Refund a payment request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := providerClient()
			if err != nil {
				return err
			}
			value, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			if currency == "" {
				currency = cfg.Paga.Currency
			}

			result, err := client.PaymentRequestRefund(cmd.Context(), &pagacollect.RefundRequest{
				ReferenceNumber: args[0],
				RefundAmount:    value,
				Currency:        currency,
				Reason:          optionalString(cmd, "reason", reason),
			})
			if err != nil {
				return err
			}
			return printResult(cmd, pagacollect.EndpointRefund, result)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount to refund")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (defaults to PAGA_CURRENCY)")
	cmd.Flags().StringVar(&reason, "reason", "", "refund reason")
	cmd.MarkFlagRequired("amount")
	return cmd
}
