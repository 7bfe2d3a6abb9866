// Package monitoring serves the state of running simulations over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Observable is a simulation whose counters can be monitored. Stats must be
// safe to call from any goroutine.
type Observable interface {
	ID() string
	Name() string
	Stats() cache.Statistics
}

// Monitor can turn a batch of simulations into a server that reports their
// progress.
type Monitor struct {
	portNumber int

	lock         sync.Mutex
	simulations  []Observable
	progressBars []*ProgressBar

	profileDuration time.Duration
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulation registers a simulation to be monitored.
func (m *Monitor) RegisterSimulation(s Observable) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.simulations = append(m.simulations, s)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.lock.Lock()
	defer m.lock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/simulations", m.listSimulations)
	r.HandleFunc("/api/simulation/{id}", m.simulationDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its URL. The
// simulations keep running if the server later fails.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("starting monitoring server: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go m.serve(listener)

	return url, nil
}

// serve blocks until the listener fails, then reports why.
func (m *Monitor) serve(listener net.Listener) error {
	err := http.Serve(listener, m.router())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Monitoring server stopped: %v\n", err)
	}

	return err
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		finished, total := b.Progress()
		bars = append(bars, progressRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     total,
			Finished:  finished,
		})
	}
	m.lock.Unlock()

	writeJSON(w, bars)
}

type simulationRsp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (m *Monitor) listSimulations(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	sims := make([]simulationRsp, 0, len(m.simulations))
	for _, s := range m.simulations {
		sims = append(sims, simulationRsp{ID: s.ID(), Name: s.Name()})
	}
	m.lock.Unlock()

	writeJSON(w, sims)
}

type simulationDetail struct {
	ID    string
	Name  string
	Stats cache.Statistics
}

func (m *Monitor) simulationDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s := m.findSimulationOr404(w, id)
	if s == nil {
		return
	}

	detail := &simulationDetail{
		ID:    s.ID(),
		Name:  s.Name(),
		Stats: s.Stats(),
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(detail)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findSimulationOr404(
	w http.ResponseWriter,
	id string,
) Observable {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, s := range m.simulations {
		if s.ID() == id {
			return s
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Simulation not found"))
	dieOnErr(err)

	return nil
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
