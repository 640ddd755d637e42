package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(leaveCmd)
	leaveCmd.Flags().String("api-addr", "127.0.0.1:8080", "address of a running node's admin API")
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Ask a running node to gracefully leave the cluster",
	RunE:  runLeave,
}

func runLeave(cmd *cobra.Command, args []string) error {
	apiAddr, _ := cmd.Flags().GetString("api-addr")
	resp, err := http.Post(fmt.Sprintf("http://%s/leave", apiAddr), "application/json", nil)
	if err != nil {
		return fmt.Errorf("request leave from %s: %w", apiAddr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("leave request to %s: unexpected status %s", apiAddr, resp.Status)
	}
	fmt.Println("leave requested")
	return nil
}
