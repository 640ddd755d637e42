package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.Flags().String("api-addr", "127.0.0.1:8080", "address of a running node's admin API")
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List the members a running node currently knows about",
	RunE:  runMembers,
}

type memberRow struct {
	HostKey     string `json:"host_key"`
	Address     string `json:"address,omitempty"`
	Incarnation uint64 `json:"incarnation"`
	State       string `json:"state"`
}

func runMembers(cmd *cobra.Command, args []string) error {
	apiAddr, _ := cmd.Flags().GetString("api-addr")
	resp, err := http.Get(fmt.Sprintf("http://%s/members", apiAddr))
	if err != nil {
		return fmt.Errorf("query %s: %w", apiAddr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query %s: unexpected status %s", apiAddr, resp.Status)
	}

	var rows []memberRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("%-36s  %-21s  %-11s  %s\n", "HOST_KEY", "ADDRESS", "STATE", "INCARNATION")
	for _, m := range rows {
		fmt.Printf("%-36s  %-21s  %-11s  %d\n", m.HostKey, m.Address, m.State, m.Incarnation)
	}
	return nil
}
