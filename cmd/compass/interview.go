// Copyright 2026 Compass Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/compasshq/compass/assistant"
	"github.com/compasshq/compass/audio"
	"github.com/compasshq/compass/configsync"
	"github.com/compasshq/compass/prefs"
	"github.com/compasshq/compass/realtime"
	"github.com/compasshq/compass/realtime/geminilive"
	"github.com/compasshq/compass/roster"
	"github.com/compasshq/compass/transcript"
)

func newInterviewCommand() *cobra.Command {
	var (
		dbPath         string
		assistantID    string
		credentialsURL string
		model          string
		recordingPath  string
	)

	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run a console interview session against an assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := assistant.Open(dbPath)
			if err != nil {
				return err
			}
			a, err := store.GetAssistant(ctx, assistantID)
			if err != nil {
				return err
			}
			defs, err := store.Definitions(ctx, assistantID)
			if err != nil {
				return err
			}
			graph := roster.Build(defs, a.Name, a.Voice, "")
			if !cmd.Flags().Changed("model") && a.Model != "" {
				model = a.Model
			}

			prefsPath, err := prefs.DefaultPath()
			if err != nil {
				return err
			}
			p, err := prefs.Open(prefsPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printer := newTranscriptPrinter(out, p.GetBool(prefs.KeyBreadcrumbsExpanded, false))

			controller, manager := wireSession(graph, credentialsURL, model, p, printer)
			defer controller.Disconnect()
			defer manager.Close()
			if recordingPath != "" {
				defer func() {
					if printer.recorder.Len() == 0 {
						return
					}
					if err := os.WriteFile(recordingPath, printer.recorder.WAV(), 0o644); err != nil {
						log.Warn().Err(err).Str("path", recordingPath).Msg("saving session recording")
						return
					}
					fmt.Fprintf(out, "recording saved to %s (%s)\n", recordingPath, printer.recorder.Duration())
				}()
			}

			settings := configsync.New(store, controller,
				configsync.WithFailureNotify(func(err error) {
					fmt.Fprintf(out, "!! settings change not saved: %v\n", err)
				}))
			if err := settings.Load(ctx, assistantID); err != nil {
				return err
			}

			if err := controller.Connect(ctx, graph, printer.recorder); err != nil {
				return fmt.Errorf("starting session: %w", err)
			}
			fmt.Fprintf(out, "connected to %q (root agent %q). Type to talk, /voice or /speed to adjust, /quit to leave.\n",
				a.Name, graph.Root().Name)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue
				case line == "/quit":
					return nil
				case line == "/playback on" || line == "/playback off":
					if err := manager.SetPlaybackEnabled(strings.HasSuffix(line, "on")); err != nil {
						fmt.Fprintf(out, "!! %v\n", err)
					}
				case strings.HasPrefix(line, "/voice "):
					if err := settings.SetVoice(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/voice "))); err != nil {
						fmt.Fprintf(out, "!! %v\n", err)
					}
				case strings.HasPrefix(line, "/speed "):
					speed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "/speed ")), 64)
					if err != nil {
						fmt.Fprintf(out, "!! not a number: %q\n", strings.TrimPrefix(line, "/speed "))
						continue
					}
					if err := settings.SetSpeed(ctx, speed); err != nil {
						fmt.Fprintf(out, "!! %v\n", err)
					}
				default:
					printer.reconciler.RecordLocalUserText(line)
					if err := controller.Interrupt(); err != nil {
						return err
					}
					if err := controller.SendUserText(line); err != nil {
						return err
					}
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "compass.db", "path to the assistant store")
	cmd.Flags().StringVar(&assistantID, "assistant", "", "assistant id to interview with")
	cmd.Flags().StringVar(&credentialsURL, "credentials-url", "http://localhost:8080/api/realtime/credentials", "ephemeral credential endpoint")
	cmd.Flags().StringVar(&model, "model", "gemini-2.0-flash-live-001", "live model name")
	cmd.Flags().StringVar(&recordingPath, "record", "", "write the captured session audio to this WAV file on exit")
	cmd.MarkFlagRequired("assistant")
	return cmd
}

// transcriptPrinter renders finalized transcript lines to the console as the
// reconciler applies events.
type transcriptPrinter struct {
	store      *transcript.Store
	reconciler *realtime.Reconciler
	recorder   *audio.Recorder
	out        io.Writer
	printed    map[string]bool
}

func newTranscriptPrinter(out io.Writer, expandCrumbs bool) *transcriptPrinter {
	return &transcriptPrinter{
		store:    transcript.NewStore(transcript.WithExpandedBreadcrumbs(expandCrumbs)),
		recorder: audio.NewRecorder(),
		out:      out,
		printed:  map[string]bool{},
	}
}

// handle feeds the reconciler, then prints every newly finalized visible
// item once.
func (p *transcriptPrinter) handle(ev realtime.ServerEvent) {
	p.reconciler.Handle(ev)
	for _, it := range p.store.Visible() {
		if p.printed[it.ID] || (it.Type == transcript.ItemTypeMessage && it.Status != transcript.StatusDone) {
			continue
		}
		p.printed[it.ID] = true
		switch it.Type {
		case transcript.ItemTypeMessage:
			fmt.Fprintf(p.out, "[%s] %s: %s\n", it.Timestamp, it.Role, it.Title)
		case transcript.ItemTypeBreadcrumb:
			fmt.Fprintf(p.out, "[%s] * %s\n", it.Timestamp, it.Title)
			if it.Expanded && it.Data != nil {
				fmt.Fprintf(p.out, "      %v\n", it.Data)
			}
		}
	}
}

func wireSession(graph *roster.Graph, credentialsURL, model string, p *prefs.Prefs, printer *transcriptPrinter) (*realtime.Controller, *audio.Manager) {
	dialer := &geminilive.Dialer{Model: model}
	creds := &realtime.HTTPCredentialProvider{URL: credentialsURL}

	var manager *audio.Manager
	controller := realtime.NewController(dialer, creds,
		realtime.WithEventHandler(printer.handle),
		realtime.WithStatusCallback(func(s realtime.Status) {
			if manager != nil {
				manager.OnStatus(s)
			}
			log.Info().Str("status", string(s)).Msg("session status")
		}),
	)
	printer.reconciler = realtime.NewReconciler(printer.store,
		realtime.WithHandoffCallback(func(name string) {
			controller.SetActiveAgent(name)
			fmt.Fprintf(printer.out, "-- handoff to %s --\n", name)
		}))
	printer.reconciler.SetGraph(graph)

	manager = audio.NewManager(printer.recorder, controller, p)
	return controller, manager
}
