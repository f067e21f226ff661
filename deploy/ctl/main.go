package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"music-box/adapter/uds"
	"music-box/business/entity"
	"music-box/business/usecase"
)

const defaultSocketPath = "/tmp/music-box.sock"

var (
	socketPath string
	timeout    time.Duration
	sortBy     string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "music-box-ctl",
		Short:         "Control a running music-box daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	defSocket := defaultSocketPath
	if v, ok := os.LookupEnv("MUSIC_BOX_SOCKET"); ok {
		defSocket = v
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", defSocket, "daemon socket path")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "command timeout")

	root.AddCommand(
		simpleCmd("play [track-id]", "Play the loaded track or the given one", "play", cobra.MaximumNArgs(1)),
		simpleCmd("pause", "Pause playback", "pause", cobra.NoArgs),
		simpleCmd("toggle", "Toggle play/pause", "toggle", cobra.NoArgs),
		simpleCmd("stop", "Stop and rewind", "stop", cobra.NoArgs),
		simpleCmd("next", "Skip to the next track", "next", cobra.NoArgs),
		simpleCmd("prev", "Go back to the previous track", "prev", cobra.NoArgs),
		simpleCmd("volume <0..1>", "Set the volume", "volume", cobra.ExactArgs(1)),
		simpleCmd("repeat [none|one|all]", "Set or cycle the repeat mode", "repeat", cobra.MaximumNArgs(1)),
		simpleCmd("shuffle [on|off]", "Set or toggle shuffle", "shuffle", cobra.MaximumNArgs(1)),
		seekCmd(),
		tracksCmd("tracks [query]", "List library tracks", "tracks"),
		tracksCmd("scan", "Rescan the library", "scan"),
		stateCmd(),
	)

	return root
}

func send(line string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return uds.Send(ctx, socketPath, line)
}

func simpleCmd(use, short, command string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := send(strings.Join(append([]string{command}, args...), " "))
			return err
		},
	}
}

func seekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seek <ms|m:ss>",
		Short: "Seek within the current track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			_, err = send(fmt.Sprintf("seek %d", ms))
			return err
		},
	}
}

func tracksCmd(use, short, command string) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := send(strings.Join(append([]string{command}, args...), " "))
			if err != nil {
				return err
			}

			resp := usecase.TracksResponse{}
			if err := json.Unmarshal([]byte(reply), &resp); err != nil {
				return errors.Wrap(err, "parse reply")
			}

			tracks := resp.Tracks
			if sortBy != "" {
				by, err := entity.ParseSortOption(sortBy)
				if err != nil {
					return err
				}
				tracks = usecase.SortTracks(tracks, by)
			}

			renderTracks(tracks)
			if resp.LastError != "" {
				fmt.Fprintln(os.Stderr, resp.LastError)
			}
			return nil
		},
	}
	c.Flags().StringVar(&sortBy, "sort", "", "sort by title, artist, album or duration")
	return c
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the playback state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := send("state")
			if err != nil {
				return err
			}

			resp := usecase.StateResponse{}
			if err := json.Unmarshal([]byte(reply), &resp); err != nil {
				return errors.Wrap(err, "parse reply")
			}

			fmt.Println(describe(resp))
			return nil
		},
	}
}

func renderTracks(tracks []*entity.Track) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Title", "Artist", "Album", "Duration"})
	for _, tr := range tracks {
		t.AppendRow(table.Row{tr.ID, tr.Title, tr.Artist, tr.Album, entity.FormatDuration(tr.Duration)})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(tracks)})
	t.Render()
}

func describe(s usecase.StateResponse) string {
	var b strings.Builder

	switch {
	case s.CurrentTrack == nil:
		b.WriteString("nothing loaded")
	case s.IsPlaying:
		b.WriteString("playing ")
	default:
		b.WriteString("paused ")
	}

	if s.CurrentTrack != nil {
		fmt.Fprintf(&b, "%s - %s [%s/%s]", s.CurrentTrack.Artist, s.CurrentTrack.Title,
			entity.FormatDuration(s.Position), entity.FormatDuration(s.Duration))
		if s.StreamTitle != "" {
			fmt.Fprintf(&b, " %q", s.StreamTitle)
		}
	}

	fmt.Fprintf(&b, " volume: %.0f%% repeat: %s shuffle: %t", s.Volume*100, s.RepeatMode, s.Shuffle)
	if s.LastError != "" {
		fmt.Fprintf(&b, "\nlast error: %s", s.LastError)
	}

	return b.String()
}

// parsePosition accepts milliseconds or m:ss.
func parsePosition(s string) (int64, error) {
	if m, sec, ok := strings.Cut(s, ":"); ok {
		mins, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(entity.ErrInvalidArgument, "position %q", s)
		}
		secs, err := strconv.ParseInt(sec, 10, 64)
		if err != nil || secs >= 60 {
			return 0, errors.Wrapf(entity.ErrInvalidArgument, "position %q", s)
		}
		return (mins*60 + secs) * 1000, nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(entity.ErrInvalidArgument, "position %q", s)
	}
	return ms, nil
}
