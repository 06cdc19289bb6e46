// watch: Tail the realcam status feed
// Connects to /ws/status and prints one line per engine status.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/teslashibe/go-realcam/internal/httpc"
	"github.com/teslashibe/go-realcam/internal/log"
	"github.com/teslashibe/go-realcam/pkg/engine"
	"github.com/teslashibe/go-realcam/pkg/protocol"
)

var (
	addr    = flag.String("addr", "localhost:8090", "realcam server address")
	raw     = flag.Bool("json", false, "Print raw status JSON")
	every   = flag.Int("every", 1, "Print every Nth status")
	doBake  = flag.Bool("bake", false, "Bake focus keys before tailing")
	unbake  = flag.Bool("unbake", false, "Remove focus keys before tailing")
	presetF = flag.String("preset", "", "Apply a settings preset before tailing")
)

// plain drops the icons when stdout is not a terminal
var plain bool

func main() {
	flag.Parse()
	log.Init("info")
	plain = !term.IsTerminal(int(os.Stdout.Fd()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := "http://" + *addr + "/api"
	if err := runActions(ctx, api); err != nil {
		log.Fatal("request failed", "error", err)
	}

	var st engine.Status
	if err := httpc.GetJSON(ctx, api+"/status", &st); err != nil {
		log.Fatal("server not reachable", "addr", *addr, "error", err)
	}
	printStatus(st)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/status"}
	backoff := time.Second
	for ctx.Err() == nil {
		err := tail(ctx, u.String())
		if ctx.Err() != nil {
			break
		}
		log.L().Warn("status feed lost, reconnecting", "error", err, "in", backoff)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
	fmt.Println("\n👋 Bye")
}

func runActions(ctx context.Context, api string) error {
	if *presetF != "" {
		if err := httpc.PostJSON(ctx, api+"/presets/"+*presetF, nil, nil); err != nil {
			return fmt.Errorf("preset %s: %w", *presetF, err)
		}
		fmt.Printf("🎛️  preset %s applied\n", *presetF)
	}
	if *doBake {
		var resp struct {
			Run struct {
				Frames int `json:"frames"`
			} `json:"run"`
		}
		if err := httpc.PostJSON(ctx, api+"/bake", nil, &resp); err != nil {
			return fmt.Errorf("bake: %w", err)
		}
		fmt.Printf("🎯 baked %d frames\n", resp.Run.Frames)
	}
	if *unbake {
		if err := httpc.DoJSON(ctx, "DELETE", api+"/bake", nil, nil); err != nil {
			return fmt.Errorf("unbake: %w", err)
		}
		fmt.Println("🧹 focus keys removed")
	}
	return nil
}

// tail reads status messages until the connection drops or ctx is done
func tail(ctx context.Context, wsURL string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	n := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypeStatus {
			continue
		}
		n++
		if *every > 1 && n%*every != 0 {
			continue
		}
		if *raw {
			fmt.Println(string(msg.Data))
			continue
		}
		var st engine.Status
		if err := json.Unmarshal(msg.Data, &st); err != nil {
			continue
		}
		printStatus(st)
	}
}

func printStatus(st engine.Status) {
	var b strings.Builder
	state := "⏸️ "
	if st.Enabled {
		state = "▶️ "
	}
	if plain {
		state = "off"
		if st.Enabled {
			state = "on "
		}
	}
	fmt.Fprintf(&b, "%s frame %-5d %-8s E=%+.3f", state, st.Frame, st.RenderMode, st.Exposure)
	switch {
	case st.MeteringError != "":
		fmt.Fprintf(&b, " error: %s", st.MeteringError)
	case st.Skipped:
		b.WriteString(" (skipped)")
	case st.Meter != nil:
		fmt.Fprintf(&b, " L=%.4f %s", st.Meter.Luminance, st.Meter.Mode)
		if st.Control != nil && st.Control.Held {
			b.WriteString(" hold")
		}
	}
	if st.Focus != nil {
		tag := "af"
		if st.Focus.Manual {
			tag = "mf"
		} else if !st.Focus.Hit {
			tag = "af-miss"
		}
		fmt.Fprintf(&b, " focus=%.2fm(%s)", st.Focus.Distance, tag)
	}
	fmt.Fprintf(&b, " EV=%.2f bake=%s", st.EV, st.Bake)
	fmt.Fprintln(os.Stdout, b.String())
}
