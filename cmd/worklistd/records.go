package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/caio-sobreiro/dicommwl/types"
	"github.com/caio-sobreiro/dicommwl/worklist"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage scheduled procedure steps",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List worklist records",
	RunE:  runRecordsList,
}

var recordsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a worklist record",
	RunE:  runRecordsAdd,
}

var recordsUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update the given fields of a worklist record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsUpdate,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a worklist record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsDelete,
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// recordFlags are the editable fields shared by add and update.
type recordFlags struct {
	accession   string
	patientID   string
	surname     string
	forename    string
	title       string
	sex         string
	birthDate   string
	nationalID  string
	modality    string
	description string
	room        string
	hospital    string
	performing  string
	referring   string
	stationAE   string
	examTime    string
}

var (
	addFlags    recordFlags
	updateFlags recordFlags
)

func (f *recordFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.accession, "accession", "", "Accession number")
	flags.StringVar(&f.patientID, "patient-id", "", "Patient ID")
	flags.StringVar(&f.surname, "surname", "", "Patient surname")
	flags.StringVar(&f.forename, "forename", "", "Patient forename")
	flags.StringVar(&f.title, "title", "", "Patient title")
	flags.StringVar(&f.sex, "sex", "", "Patient sex (M, F or O)")
	flags.StringVar(&f.birthDate, "birth-date", "", "Birth date ("+dateLayout+")")
	flags.StringVar(&f.nationalID, "egn", "", "Bulgarian EGN or LNCH; sets birth date and sex")
	flags.StringVar(&f.modality, "modality", "", "Modality, e.g. MR")
	flags.StringVar(&f.description, "description", "", "Exam description")
	flags.StringVar(&f.room, "room", "", "Exam room")
	flags.StringVar(&f.hospital, "hospital", "", "Hospital name")
	flags.StringVar(&f.performing, "performing-physician", "", "Performing physician (DICOM PN)")
	flags.StringVar(&f.referring, "referring-physician", "", "Referring physician (DICOM PN)")
	flags.StringVar(&f.stationAE, "station-ae", "", "Scheduled station AE title")
	flags.StringVar(&f.examTime, "exam-time", "", "Exam date and time ("+dateTimeLayout+", UTC)")
}

// apply copies every flag that was set on the command line into r.
func (f *recordFlags) apply(flags *pflag.FlagSet, r *types.WorklistRecord) error {
	set := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("accession", &r.AccessionNumber, f.accession)
	set("patient-id", &r.PatientID, f.patientID)
	set("surname", &r.Surname, f.surname)
	set("forename", &r.Forename, f.forename)
	set("title", &r.Title, f.title)
	set("sex", &r.Sex, f.sex)
	set("modality", &r.Modality, f.modality)
	set("description", &r.ExamDescription, f.description)
	set("room", &r.ExamRoom, f.room)
	set("hospital", &r.HospitalName, f.hospital)
	set("performing-physician", &r.PerformingPhysician, f.performing)
	set("referring-physician", &r.ReferringPhysician, f.referring)
	set("station-ae", &r.ScheduledAET, f.stationAE)

	if flags.Changed("birth-date") {
		dob, err := time.Parse(dateLayout, f.birthDate)
		if err != nil {
			return fmt.Errorf("--birth-date: %w", err)
		}
		r.DateOfBirth = dob
	}
	if flags.Changed("exam-time") {
		at, err := time.ParseInLocation(dateTimeLayout, f.examTime, time.UTC)
		if err != nil {
			return fmt.Errorf("--exam-time: %w", err)
		}
		r.ExamDateAndTime = at
	}
	if flags.Changed("egn") {
		id, err := worklist.ParseNationalID(f.nationalID)
		if err != nil {
			return fmt.Errorf("--egn: %w", err)
		}
		id.Apply(r)
	}
	return nil
}

func init() {
	recordsCmd.AddCommand(recordsListCmd, recordsAddCmd, recordsUpdateCmd, recordsDeleteCmd)

	addFlags.register(recordsAddCmd.Flags())
	recordsAddCmd.MarkFlagRequired("patient-id")
	recordsAddCmd.MarkFlagRequired("surname")
	recordsAddCmd.MarkFlagRequired("modality")

	updateFlags.register(recordsUpdateCmd.Flags())
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", arg)
	}
	return id, nil
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListCurrentRecords(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACCESSION\tPATIENT ID\tNAME\tSEX\tMODALITY\tSTATION\tEXAM TIME\tSTUDY UID")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.AccessionNumber, r.PatientID, r.PatientName(), r.Sex, r.Modality,
			r.ScheduledAET, r.ExamDateAndTime.UTC().Format(dateTimeLayout), r.StudyUID)
	}
	return w.Flush()
}

func runRecordsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	record := &types.WorklistRecord{}
	if err := addFlags.apply(cmd.Flags(), record); err != nil {
		return err
	}
	if record.ExamDateAndTime.IsZero() {
		record.ExamDateAndTime = time.Now().UTC().Truncate(time.Minute)
	}
	if err := worklist.NewValidator(cfg.Worklist.Modalities).Validate(record); err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Add(ctx, record)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added record %d\n", id)
	return nil
}

func runRecordsUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	record, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := updateFlags.apply(cmd.Flags(), record); err != nil {
		return err
	}
	if err := worklist.NewValidator(cfg.Worklist.Modalities).Validate(record); err != nil {
		return err
	}
	if err := st.Update(ctx, record); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated record %d\n", id)
	return nil
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted record %d\n", id)
	return nil
}
