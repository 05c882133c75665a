// Command evtxexport renders every (or a selected) record of an
// .evtx file to XML, JSON, or TSV on stdout (spec §6 "External
// interfaces").
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"git.lukeshu.com/go/lowmemjson"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"github.com/libyal/libevtx-sub000/cmd/internal/evtxcli"
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
	"github.com/libyal/libevtx-sub000/lib/evtxfile"
)

func main() {
	logLevel := evtxcli.NewLogLevelFlag()
	var openFlags evtxcli.OpenFlags
	var format string
	var recovered bool
	var recordIndex int64

	cmd := &cobra.Command{
		Use:   "evtxexport FILE.evtx",
		Short: "Export records from a Windows .evtx event log as XML or JSON",

		Args:          cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	cmd.SetHelpTemplate(cliutil.HelpTemplate)
	cmd.PersistentFlags().Var(logLevel, "verbosity", "set the verbosity")
	cmd.Flags().StringVar(&format, "format", "xml", `output format: "xml", "json", or "tsv"`)
	cmd.Flags().BoolVar(&recovered, "recovered", false, "export the recovered-records view instead of live records")
	cmd.Flags().Int64Var(&recordIndex, "record", -1, "export only this single record index (0-based); default exports all")
	openFlags.Register(cmd)

	// Exit status: 0 on success, 1 for a usage error (an unknown
	// --format, or anything cobra rejects before RunE runs), 2 for an
	// error while reading or exporting the file.
	runFailed := false
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if format != "xml" && format != "json" && format != "tsv" {
			return fmt.Errorf("unrecognized --format %q (want xml, json, or tsv)", format)
		}
		openFlags.Path = args[0]
		ctx := evtxcli.WithLogger(cmd.Context(), logLevel.Level)
		err := evtxcli.RunInGroup(ctx, func(ctx context.Context) error {
			return run(ctx, &openFlags, format, recovered, recordIndex)
		})
		runFailed = err != nil
		return err
	}

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "evtxexport: error: %v\n", err)
		if runFailed {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, flags *evtxcli.OpenFlags, format string, recovered bool, recordIndex int64) error {
	if format != "xml" && format != "json" && format != "tsv" {
		return fmt.Errorf("unrecognized --format %q (want xml, json, or tsv)", format)
	}

	file, err := flags.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := file.Close(); err != nil {
			dlog.Errorf(ctx, "closing file: %v", err)
		}
	}()
	evtxcli.LogIfCorrupted(ctx, file)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	get := file.Record
	count := file.NumberOfRecords()
	if recovered {
		get = file.RecoveredRecord
		count = file.NumberOfRecoveredRecords()
	}

	if recordIndex >= 0 {
		return exportOne(out, get, uint64(recordIndex), format)
	}

	var enc *lowmemjson.Encoder
	switch format {
	case "json":
		enc = lowmemjson.NewEncoder(out)
		io.WriteString(out, "[\n")
	case "tsv":
		io.WriteString(out, tsvHeader)
	}
	for i := uint64(0); i < count; i++ {
		rec, err := get(i)
		if err != nil {
			dlog.Errorf(ctx, "record %d: %v", i, err)
			continue
		}
		if err := exportRecord(out, enc, rec, i, format, i > 0); err != nil {
			dlog.Errorf(ctx, "record %d: %v", i, err)
		}
	}
	if format == "json" {
		io.WriteString(out, "\n]\n")
	}
	return nil
}

func exportOne(out *bufio.Writer, get func(uint64) (*evtxfile.Record, error), index uint64, format string) error {
	rec, err := get(index)
	if err != nil {
		return err
	}
	var enc *lowmemjson.Encoder
	if format == "json" {
		enc = lowmemjson.NewEncoder(out)
	}
	return exportRecord(out, enc, rec, index, format, false)
}

// jsonRecord is the per-record shape evtxexport emits in --format=json
// mode: identifier/time alongside the fully rendered XML string,
// rather than a structural re-encoding of the tag tree — callers that
// want structure should parse the embedded xml field themselves.
type jsonRecord struct {
	Index      uint64 `json:"index"`
	Identifier uint64 `json:"identifier"`
	Time       string `json:"written_time"`
	Offset     int64  `json:"offset"`
	XML        string `json:"xml"`
}

// tsvHeader is the --format=tsv column header, one column per spec
// §4.6 accessor that has a plain scalar shape (the strings/binary
// accessors are structural and don't fit a single flat row, so they're
// left to --format=xml/json).
const tsvHeader = "index\tidentifier\twritten_time\toffset\tevent_id\tqualifiers\tlevel\tprovider_guid\tsource_name\tcomputer_name\tuser_sid\n"

// tsvField flattens a value to a single TSV cell, replacing any
// embedded tab/newline so a corrupted or attacker-crafted string value
// can't smuggle extra rows/columns into the output.
func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", "")
}

// missingFieldOK reports whether err is exactly the "this optional
// System child is absent" case (spec §4.6's System/Provider,
// System/Security, etc. are all individually optional), which
// --format=tsv renders as an empty cell rather than dropping the
// whole row the way every other accessor error does.
func missingFieldOK(err error) bool {
	var e *evtxerr.Error
	return errors.As(err, &e) && e.Kind == evtxerr.KindMissingField
}

func exportRecord(out *bufio.Writer, enc *lowmemjson.Encoder, rec *evtxfile.Record, index uint64, format string, needComma bool) error {
	switch format {
	case "xml":
		xml, err := rec.XMLStringUTF8()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "<!-- record %d -->\n%s", index, xml)
		return nil
	case "tsv":
		eventID, err := rec.EventIdentifier()
		if err != nil && !missingFieldOK(err) {
			return err
		}
		qualifiers, hasQualifiers, err := rec.EventIdentifierQualifiers()
		if err != nil && !missingFieldOK(err) {
			return err
		}
		qualifiersField := ""
		if hasQualifiers {
			qualifiersField = fmt.Sprintf("%d", qualifiers)
		}
		level, err := rec.EventLevel()
		if err != nil && !missingFieldOK(err) {
			return err
		}
		providerGUID, err := rec.ProviderIdentifier()
		if err != nil && !missingFieldOK(err) {
			return err
		}
		sourceName, err := rec.SourceName()
		if err != nil && !missingFieldOK(err) {
			return err
		}
		computerName, err := rec.ComputerName()
		if err != nil && !missingFieldOK(err) {
			return err
		}
		userSID, err := rec.UserSecurityIdentifier()
		if err != nil && !missingFieldOK(err) {
			return err
		}
		fmt.Fprintf(out, "%d\t%d\t%s\t%d\t%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			index, rec.Identifier, rec.TimeCreated(), rec.Offset(),
			eventID, qualifiersField, level,
			tsvField(providerGUID), tsvField(sourceName), tsvField(computerName), tsvField(userSID))
		return nil
	case "json":
		xml, err := rec.XMLStringUTF8()
		if err != nil {
			xml = ""
		}
		if needComma {
			io.WriteString(out, ",\n")
		}
		return enc.Encode(jsonRecord{
			Index:      index,
			Identifier: rec.Identifier,
			Time:       rec.TimeCreated(),
			Offset:     rec.Offset(),
			XML:        xml,
		})
	default:
		return fmt.Errorf("unrecognized format %q", format)
	}
}
