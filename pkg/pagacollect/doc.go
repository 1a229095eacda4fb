// Package pagacollect provides a client for the Paga Collect API.
//
// Paga Collect lets a merchant list banks, issue payment requests, query
// their status and history, refund them, and manage persistent payment
// accounts (provider-side virtual accounts that can be funded at any time).
//
// # Authentication
//
// Every request is a JSON POST carrying two headers:
//   - Authorization: HTTP Basic credentials built from the client id and password
//   - hash: lowercase hex SHA-512 of an endpoint-specific concatenation of
//     request values followed by the API key
//
// Which request values take part in the hash, and in what order, is fixed by
// the provider per endpoint. Values that are not set are skipped.
//
// # Basic Usage
//
//	client, err := pagacollect.NewClient(&pagacollect.ClientConfig{
//	    ClientID: "your-client-id",
//	    Password: "your-password",
//	    APIKey:   "your-api-key",
//	    Test:     true,
//	})
//
//	result, err := client.PaymentRequest(ctx, &pagacollect.PaymentRequest{
//	    ReferenceNumber: "R1",
//	    Amount:          decimal.NewFromInt(100),
//	    Payer:           pagacollect.Payer{Name: "Ada", PhoneNumber: "08012345678"},
//	    Payee:           pagacollect.Payee{Name: "Shop", AccountNumber: "1234567890"},
//	    CallBackURL:     "https://example.com/callbacks/paga",
//	    PaymentMethods:  []string{pagacollect.PaymentMethodBankTransfer},
//	})
//
// # Error Handling
//
// Transport failures and unreadable responses are returned as errors. A
// response the provider marks as failed is not an error: it comes back as a
// Result with Error set, the provider status message in Message and the full
// payload in Response.
//
//	result, err := client.PaymentStatus(ctx, &pagacollect.PaymentStatusRequest{ReferenceNumber: "R1"})
//	if err != nil {
//	    var decErr *pagacollect.DecodeError
//	    if errors.As(err, &decErr) {
//	        // decErr.Body holds the raw response text
//	    }
//	    return err
//	}
//	if result.Error {
//	    // business failure, see result.Message
//	}
//
// The provider treats status codes 0 through 2 as success; see
// StatusCodeSuccessMin and StatusCodeSuccessMax.
//
// The client makes exactly one attempt per call and enforces no timeout of
// its own unless ClientConfig.Timeout is set. Use a context deadline.
package pagacollect
