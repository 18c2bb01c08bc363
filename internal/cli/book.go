package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/client"
	"github.com/iliyamo/table-reservation/internal/flow"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/payment"
	"github.com/iliyamo/table-reservation/internal/service"
)

type bookOptions struct {
	tenant   string
	party    int
	date     string
	at       string // HH:MM in the tenant's zone
	guest    model.GuestDetails
	noVerify bool
}

// slotTime resolves --time on --date in loc.  An empty --time means the
// first offered slot.
func (o bookOptions) slotTime(loc *time.Location) (time.Time, error) {
	if o.at == "" {
		return time.Time{}, nil
	}
	ts, err := time.ParseInLocation(service.DateLayout+" 15:04", o.date+" "+o.at, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--time: %w", err)
	}
	return ts, nil
}

func newBookCmd() *cobra.Command {
	var o bookOptions
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a table through the HTTP API",
		Long: "Runs one guest booking attempt against a running server: availability, hold, " +
			"deposit (test keys only) and confirmation, then reads the booking back.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			api := client.New(e.cfg.Client.BaseURL, client.WithTimeout(e.cfg.Client.Timeout), client.WithLogger(e.log.Named("client")))

			var payments flow.PaymentCollector
			if e.cfg.StripeSecretKey != "" {
				collector, err := payment.NewTestCollector(e.cfg.StripeSecretKey)
				if err != nil {
					e.log.Warn("deposits disabled", zap.Error(err))
				} else {
					payments = collector
				}
			}
			w := flow.New(api, payments, flow.WithVerifyDelay(e.cfg.Client.VerifyDelay), flow.WithLogger(e.log.Named("flow")))

			if o.date == "" {
				o.date = time.Now().Format(service.DateLayout)
			}
			t, err := api.Tenant(ctx, o.tenant)
			if err != nil {
				return fmt.Errorf("%s (%w)", flow.UserMessage(err), err)
			}
			at, err := o.slotTime(t.Model().Location())
			if err != nil {
				return err
			}

			st, res, v, err := w.Book(ctx, flow.BookRequest{
				TenantRef: o.tenant,
				PartySize: o.party,
				Date:      o.date,
				SlotTime:  at,
				Guest:     o.guest,
			})
			if err != nil {
				printAlternatives(out, st)
				return fmt.Errorf("%s (stopped at %s: %w)", flow.UserMessage(err), st.Step, err)
			}
			printOutcome(out, res)
			if o.noVerify {
				return nil
			}
			if verr := v.Wait(); verr != nil {
				fmt.Fprintln(out, "warning: the booking could not be read back yet:", verr)
				return nil
			}
			fmt.Fprintln(out, "verified")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.tenant, "tenant", "", "tenant slug or id")
	f.IntVar(&o.party, "party", 2, "party size")
	f.StringVar(&o.date, "date", "", "YYYY-MM-DD, default today")
	f.StringVar(&o.at, "time", "", "HH:MM, default the first offered slot")
	f.StringVar(&o.guest.FirstName, "first-name", "", "guest first name")
	f.StringVar(&o.guest.LastName, "last-name", "", "guest last name")
	f.StringVar(&o.guest.Email, "email", "", "guest email")
	f.StringVar(&o.guest.Phone, "phone", "", "guest phone")
	f.StringVar(&o.guest.SpecialRequests, "requests", "", "special requests")
	f.BoolVar(&o.noVerify, "no-verify", false, "do not wait for the read-back")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func printOutcome(w io.Writer, o flow.Outcome) {
	fmt.Fprintln(w, o.Headline)
	fmt.Fprintln(w, o.Message)
	fmt.Fprintf(w, "confirmation: %s (booking %s, %s)\n", o.ConfirmationNumber, o.BookingID, o.Status)
	s := o.Summary
	fmt.Fprintf(w, "%s %s, party of %d", s.Date, s.Time, s.PartySize)
	if s.Table != nil {
		fmt.Fprintf(w, ", table %s", s.Table.Label)
	}
	fmt.Fprintln(w)
	if s.Deposit != nil && s.Deposit.Paid {
		fmt.Fprintf(w, "deposit paid: %d cents\n", s.Deposit.AmountCents)
	}
}

func printAlternatives(w io.Writer, st *flow.State) {
	if st == nil || len(st.Alternatives) == 0 {
		return
	}
	fmt.Fprintln(w, "other times:")
	loc := st.Tenant.Model().Location()
	for _, a := range st.Alternatives {
		fmt.Fprintf(w, "  %s (%d tables)\n", a.Time.In(loc).Format("Mon 2006-01-02 15:04"), a.AvailableTables)
	}
}
