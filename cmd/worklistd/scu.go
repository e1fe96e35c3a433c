package main

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicommwl/client"
	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/types"
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Send a C-ECHO to a DICOM node",
	RunE:  runEcho,
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Query a Modality Worklist SCP",
	Long:  `find sends a Modality Worklist C-FIND and prints every match. The identifier is built from the filter flags or read from a Part 10 file with --query-file.`,
	RunE:  runFind,
}

// peerFlags address the remote application entity.
type peerFlags struct {
	host      string
	port      int
	calledAE  string
	callingAE string
}

var (
	echoPeer peerFlags
	findPeer peerFlags

	findPatientID string
	findModality  string
	findDate      string
	findStation   string
	findQueryFile string
	findOutputDir string
)

func (p *peerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.host, "host", "localhost", "Remote host")
	cmd.Flags().IntVar(&p.port, "port", 0, "Remote port (default: the configured server port)")
	cmd.Flags().StringVar(&p.calledAE, "called-ae", "", "Called AE title (default: the configured server AE title)")
	cmd.Flags().StringVar(&p.callingAE, "calling-ae", "WORKLISTSCU", "Calling AE title")
}

func (p *peerFlags) address() string {
	port := p.port
	if port == 0 {
		port = cfg.Server.Port
	}
	return p.host + ":" + strconv.Itoa(port)
}

func (p *peerFlags) clientConfig(abstractSyntaxes ...string) client.Config {
	calledAE := p.calledAE
	if calledAE == "" {
		calledAE = cfg.Server.AETitle
	}
	return client.Config{
		CallingAETitle:   p.callingAE,
		CalledAETitle:    calledAE,
		Logger:           logger,
		AbstractSyntaxes: abstractSyntaxes,
	}
}

func init() {
	echoPeer.register(echoCmd)
	findPeer.register(findCmd)

	findCmd.Flags().StringVar(&findPatientID, "patient-id", "", "Patient ID, wildcards allowed")
	findCmd.Flags().StringVar(&findModality, "modality", "", "Scheduled modality")
	findCmd.Flags().StringVar(&findDate, "date", "", "Scheduled date, YYYYMMDD or a YYYYMMDD-YYYYMMDD range")
	findCmd.Flags().StringVar(&findStation, "station-ae", "", "Scheduled station AE title")
	findCmd.Flags().StringVar(&findQueryFile, "query-file", "", "Part 10 file holding the query identifier")
	findCmd.Flags().StringVar(&findOutputDir, "output-dir", "", "Write every match as a Part 10 file into this directory")
}

func runEcho(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	assoc, err := client.Connect(ctx, echoPeer.address(), echoPeer.clientConfig(types.VerificationSOPClass))
	if err != nil {
		return err
	}
	defer assoc.Close()

	rsp, err := assoc.SendCEcho(assoc.NextMessageID())
	if err != nil {
		return err
	}
	if rsp.Status != types.StatusSuccess {
		return fmt.Errorf("C-ECHO failed with status 0x%04X", rsp.Status)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "C-ECHO %s: success\n", echoPeer.address())
	return nil
}

// worklistQuery builds the C-FIND identifier from the filter flags. Every other
// return key is requested with an empty value.
func worklistQuery() *dicom.Dataset {
	step := dicom.NewDataset()
	step.AddElement(dicom.TagModality, dicom.VR_CS, findModality)
	step.AddElement(dicom.TagScheduledStationAETitle, dicom.VR_AE, findStation)
	step.AddElement(dicom.TagScheduledProcedureStepStartDate, dicom.VR_DA, findDate)
	step.AddElement(dicom.TagScheduledProcedureStepStartTime, dicom.VR_TM, "")
	step.AddElement(dicom.TagScheduledProcedureStepDescription, dicom.VR_LO, "")
	step.AddElement(dicom.TagScheduledProcedureStepID, dicom.VR_SH, "")

	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagAccessionNumber, dicom.VR_SH, "")
	ds.AddElement(dicom.TagPatientName, dicom.VR_PN, "")
	ds.AddElement(dicom.TagPatientID, dicom.VR_LO, findPatientID)
	ds.AddElement(dicom.TagPatientBirthDate, dicom.VR_DA, "")
	ds.AddElement(dicom.TagPatientSex, dicom.VR_CS, "")
	ds.AddElement(dicom.TagStudyInstanceUID, dicom.VR_UI, "")
	ds.AddElement(dicom.TagRequestedProcedureID, dicom.VR_SH, "")
	ds.AddSequence(dicom.TagScheduledProcedureStepSequence, step)
	return ds
}

func loadQuery() (*dicom.Dataset, error) {
	if findQueryFile == "" {
		return worklistQuery(), nil
	}
	data, err := os.ReadFile(findQueryFile)
	if err != nil {
		return nil, err
	}
	file, err := dicom.ReadPart10(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", findQueryFile, err)
	}
	return file.ParseDataset()
}

// newInstanceUID returns a UUID-derived UID under the 2.25 root.
func newInstanceUID() string {
	id := uuid.New()
	return "2.25." + new(big.Int).SetBytes(id[:]).String()
}

func stepValue(ds *dicom.Dataset, tag dicom.Tag) string {
	items := ds.GetSequence(dicom.TagScheduledProcedureStepSequence)
	if len(items) == 0 {
		return ""
	}
	return items[0].GetString(tag)
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	query, err := loadQuery()
	if err != nil {
		return err
	}
	if findOutputDir != "" {
		if err := os.MkdirAll(findOutputDir, 0o755); err != nil {
			return err
		}
	}

	assoc, err := client.Connect(ctx, findPeer.address(), findPeer.clientConfig(types.ModalityWorklistInformationModelFind))
	if err != nil {
		return err
	}
	defer assoc.Close()

	responses, err := assoc.SendCFind(ctx, &client.CFindRequest{
		SOPClassUID: types.ModalityWorklistInformationModelFind,
		Priority:    types.PriorityMedium,
		Dataset:     query,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCESSION\tPATIENT ID\tNAME\tMODALITY\tDATE\tTIME\tSTATION")

	matches := 0
	var final *client.CFindResponse
	for _, rsp := range responses {
		if !rsp.Pending() {
			final = rsp
			continue
		}
		if rsp.Dataset == nil {
			continue
		}
		matches++
		ds := rsp.Dataset
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ds.GetString(dicom.TagAccessionNumber),
			ds.GetString(dicom.TagPatientID),
			ds.GetString(dicom.TagPatientName),
			stepValue(ds, dicom.TagModality),
			stepValue(ds, dicom.TagScheduledProcedureStepStartDate),
			stepValue(ds, dicom.TagScheduledProcedureStepStartTime),
			stepValue(ds, dicom.TagScheduledStationAETitle))

		if findOutputDir != "" {
			data, err := dicom.WritePart10(ds, types.ModalityWorklistInformationModelFind, newInstanceUID(), types.ExplicitVRLittleEndian)
			if err != nil {
				return err
			}
			name := filepath.Join(findOutputDir, fmt.Sprintf("match-%04d.dcm", matches))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if final == nil {
		return fmt.Errorf("C-FIND ended without a final response")
	}
	if final.Status != types.StatusSuccess {
		return fmt.Errorf("C-FIND failed with status 0x%04X: %s", final.Status, final.ErrorComment)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d match(es)\n", matches)
	return nil
}
