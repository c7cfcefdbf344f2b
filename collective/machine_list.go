// Package collective implements the distributed-mode transport: parsing
// the machine list file, dialing a full-mesh of TCP connections to
// every peer with retry, and the collectives built over that fixed rank
// space: a Bruck all-gather, and an all-reduce that runs a
// recursive-doubling butterfly for power-of-two world sizes and a
// gather-to-rank-0-then-broadcast otherwise. There is no
// recursive-halving all-reduce.
package collective

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
	"github.com/ezoic/gbdtcore/pkg/log"
)

// Machine is one worker's address in the fixed rank->(ip,port) table.
type Machine struct {
	IP   string
	Port int
}

// ParseMachineList reads a machine list file: each line is either
// "ip port" (appended to the machine table, in file order) or
// "rank=N" (sets the local rank explicitly). Unrecognized lines are
// skipped. explicitRank is -1 when no "rank=N" line was present.
func ParseMachineList(r io.Reader) (machines []Machine, explicitRank int, err error) {
	explicitRank = -1

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "rank=") {
			n, convErr := strconv.Atoi(strings.TrimPrefix(line, "rank="))
			if convErr != nil {
				continue
			}
			explicitRank = n
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		port, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			continue
		}
		machines = append(machines, Machine{IP: fields[0], Port: port})
	}
	if err := scanner.Err(); err != nil {
		return nil, -1, gbdterrors.NewIOError("read", "machine_list", err)
	}
	return machines, explicitRank, nil
}

// ResolveLocalRank finds the rank of this process within machines,
// either from an explicit "rank=N" line or by matching localAddr
// against the table. numMachines caps how many entries are used;
// entries beyond it are logged and ignored. Fatal (a ConsistencyError)
// if the local machine cannot be identified.
func ResolveLocalRank(machines []Machine, explicitRank int, numMachines int, localAddrs []string, logger log.Logger) (rank int, used []Machine, err error) {
	if logger == nil {
		logger = log.GetLoggerWithName("collective.machine_list")
	}

	if numMachines > 0 && numMachines < len(machines) {
		logger.Warn("machine list has more entries than num_machines, ignoring excess",
			"num_machines", numMachines, "listed", len(machines))
		machines = machines[:numMachines]
	}
	used = machines

	if explicitRank >= 0 {
		if explicitRank >= len(used) {
			return -1, nil, gbdterrors.NewConsistencyError("machine_list", fmt.Sprintf("explicit rank %d out of range for %d machines", explicitRank, len(used)))
		}
		return explicitRank, used, nil
	}

	localSet := make(map[string]bool, len(localAddrs))
	for _, a := range localAddrs {
		localSet[a] = true
	}

	for i, m := range used {
		if localSet[m.IP] {
			return i, used, nil
		}
	}
	return -1, nil, gbdterrors.NewConsistencyError("machine_list", "local machine not found in machine list")
}

// LocalAddresses returns every non-loopback IP address bound to this
// host, used by ResolveLocalRank to match the machine list entries.
func LocalAddresses() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, gbdterrors.NewNetworkError("resolve", "local", err)
	}
	var out []string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		out = append(out, ipNet.IP.String())
	}
	return out, nil
}
