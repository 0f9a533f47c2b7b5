package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/wizard"
	"github.com/jwalitptl/clinic-booking/pkg/validator"
)

const totalSteps = 3

func newBookCommand(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment step by step",
		Long: `Walks through the booking form: service, preferred date and time, then
contact details. Type "رجوع" or "back" at any prompt to return to the
previous step.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := wizard.PolicyRelaxed
			if strict || a.cfg.StrictSchedule {
				policy = wizard.PolicyStrict
			}

			w := wizard.New(a.publicClient(), validator.New(a.cfg.Location()), wizard.Config{
				Policy: policy,
				Logger: a.logger,
			})
			defer w.Close()

			if err := w.LoadServices(cmd.Context()); err != nil {
				return err
			}
			err := a.runBooking(cmd.Context(), w)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "require a preferred date and time")
	return cmd
}

// runBooking drives w from the terminal until the visitor stops booking or
// input ends.
func (a *app) runBooking(ctx context.Context, w *wizard.Wizard) error {
	for {
		st := w.State()

		var err error
		switch st.Step {
		case wizard.ServiceSelection:
			err = a.askService(ctx, w, st)
		case wizard.ScheduleSelection:
			err = a.askSchedule(ctx, w)
		case wizard.ContactDetails:
			err = a.askContact(ctx, w)
		case wizard.Confirmed:
			a.printConfirmation(st)
			answer, askErr := a.ask("هل تريد حجز موعد آخر؟ [y/N]: ")
			if askErr != nil {
				return askErr
			}
			if !isYes(answer) {
				return nil
			}
			err = w.BookAnother()
		}
		if err != nil {
			return err
		}
	}
}

func (a *app) stepHeader(step wizard.Step, title string) {
	fmt.Fprintf(a.out, "\nالخطوة %d من %d: %s\n", step.Number(), totalSteps, title)
}

func (a *app) askService(ctx context.Context, w *wizard.Wizard, st wizard.State) error {
	a.stepHeader(st.Step, "اختر الخدمة")
	fmt.Fprintf(a.out, "  0) %s\n", wizard.GeneralConsultation)
	for i, s := range st.Services {
		fmt.Fprintf(a.out, "  %d) %s\n", i+1, s.Title)
	}

	answer, err := a.ask("رقم الخدمة [0]: ")
	if err != nil {
		return err
	}

	choice := 0
	if answer != "" {
		choice, err = strconv.Atoi(answer)
		if err != nil || choice < 0 || choice > len(st.Services) {
			fmt.Fprintln(a.out, "اختيار غير صالح")
			return nil
		}
	}

	if choice == 0 {
		err = w.SelectService("", "")
	} else {
		s := st.Services[choice-1]
		err = w.SelectService(s.ID.String(), s.Title)
	}
	if err != nil {
		return err
	}
	return w.Next(ctx)
}

func (a *app) askSchedule(ctx context.Context, w *wizard.Wizard) error {
	a.stepHeader(wizard.ScheduleSelection, "اختر الموعد المفضل")

	date, err := a.ask(fmt.Sprintf("التاريخ YYYY-MM-DD (من %s، Enter للتخطي): ", w.MinDate()))
	if err != nil {
		return err
	}
	if isBack(date) {
		return w.Back()
	}
	if err := w.SelectDate(date); err != nil {
		return a.fieldError(w, err, "preferred_date")
	}

	fmt.Fprintln(a.out, "الأوقات المتاحة:")
	for i, slot := range model.TimeSlots {
		fmt.Fprintf(a.out, "  %s", slot)
		if (i+1)%6 == 0 {
			fmt.Fprintln(a.out)
		}
	}
	slot, err := a.ask("الوقت HH:MM (Enter للتخطي): ")
	if err != nil {
		return err
	}
	if isBack(slot) {
		return w.Back()
	}
	if err := w.SelectTime(slot); err != nil {
		return a.fieldError(w, err, "preferred_time")
	}

	if err := w.Next(ctx); errors.Is(err, wizard.ErrScheduleRequired) {
		a.printErrors(w.State().Errors)
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

func (a *app) askContact(ctx context.Context, w *wizard.Wizard) error {
	a.stepHeader(wizard.ContactDetails, "بيانات التواصل")

	name, err := a.ask("الاسم الكامل: ")
	if err != nil {
		return err
	}
	if isBack(name) {
		return w.Back()
	}
	phone, err := a.ask("رقم الهاتف (7XXXXXXXX): ")
	if err != nil {
		return err
	}
	notes, err := a.ask("ملاحظات (اختياري): ")
	if err != nil {
		return err
	}

	for _, set := range []func() error{
		func() error { return w.SetName(name) },
		func() error { return w.SetPhone(phone) },
		func() error { return w.SetNotes(notes) },
	} {
		if err := set(); err != nil {
			return err
		}
	}

	for {
		err := w.Next(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, wizard.ErrInvalidForm):
			a.printErrors(w.State().Errors)
			return nil
		case errors.Is(err, wizard.ErrClosed):
			return err
		}

		fmt.Fprintln(a.out, w.State().Notice)
		answer, askErr := a.ask("إعادة الإرسال؟ [y/N]: ")
		if askErr != nil {
			return askErr
		}
		if !isYes(answer) {
			return nil
		}
	}
}

// fieldError prints the message of field for validation failures and
// passes any other error through.
func (a *app) fieldError(w *wizard.Wizard, err error, field string) error {
	if !errors.Is(err, wizard.ErrInvalidForm) {
		return err
	}
	if msg := w.State().Errors[field]; msg != "" {
		fmt.Fprintln(a.out, "⚠ "+msg)
	}
	return nil
}

func (a *app) printErrors(errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintln(a.out, "⚠ "+errs[f])
	}
}

func (a *app) printConfirmation(st wizard.State) {
	f := st.Form
	fmt.Fprintln(a.out, "\n✅ تم استلام طلب الحجز بنجاح، سنتواصل معك قريباً")
	fmt.Fprintf(a.out, "  الخدمة: %s\n", f.ServiceLabel())
	fmt.Fprintf(a.out, "  التاريخ: %s\n", orUnset(f.Date))
	fmt.Fprintf(a.out, "  الوقت: %s\n", orUnset(f.Time))
	fmt.Fprintf(a.out, "  الاسم: %s\n", f.Name)
	fmt.Fprintf(a.out, "  الهاتف: %s\n", f.Phone)
}

func orUnset(s string) string {
	if s == "" {
		return "غير محدد"
	}
	return s
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "نعم":
		return true
	}
	return false
}

func isBack(s string) bool {
	switch strings.ToLower(s) {
	case "back", "رجوع", "<":
		return true
	}
	return false
}
