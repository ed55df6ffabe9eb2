package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newStreamsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "streams",
		Short: "Manage streams on a running Pipeless instance",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:3030", "base URL of the running instance's control surface")

	cmd.AddCommand(newStreamsListCmd(&addr))
	cmd.AddCommand(newStreamsAddCmd(&addr))
	cmd.AddCommand(newStreamsUpdateCmd(&addr))
	cmd.AddCommand(newStreamsRemoveCmd(&addr))

	return cmd
}

func newStreamsListCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamsRequest(http.MethodGet, *addr+"/streams", nil)
		},
	}
}

func newStreamsAddCmd(addr *string) *cobra.Command {
	var outputURI, framePath, restartPolicy string

	cmd := &cobra.Command{
		Use:   "add <input_uri>",
		Short: "Add a new stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"input_uri":  args[0],
				"frame_path": strings.Split(framePath, ","),
			}
			if outputURI != "" {
				body["output_uri"] = outputURI
			}
			if restartPolicy != "" {
				body["restart_policy"] = restartPolicy
			}
			return streamsRequest(http.MethodPost, *addr+"/streams", body)
		},
	}

	cmd.Flags().StringVar(&outputURI, "output-uri", "", "output URI")
	cmd.Flags().StringVar(&framePath, "frame-path", "", "comma-separated ordered list of stage names (required)")
	cmd.Flags().StringVar(&restartPolicy, "restart-policy", "", "never|always|on_error|on_eos")
	cmd.MarkFlagRequired("frame-path")

	return cmd
}

func newStreamsUpdateCmd(addr *string) *cobra.Command {
	var inputURI, outputURI, framePath, restartPolicy string

	cmd := &cobra.Command{
		Use:   "update <stream_id>",
		Short: "Update an existing stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if inputURI != "" {
				body["input_uri"] = inputURI
			}
			if outputURI != "" {
				body["output_uri"] = outputURI
			}
			if framePath != "" {
				body["frame_path"] = strings.Split(framePath, ",")
			}
			if restartPolicy != "" {
				body["restart_policy"] = restartPolicy
			}
			return streamsRequest(http.MethodPut, *addr+"/streams/"+args[0], body)
		},
	}

	cmd.Flags().StringVar(&inputURI, "input-uri", "", "new input URI")
	cmd.Flags().StringVar(&outputURI, "output-uri", "", "new output URI")
	cmd.Flags().StringVar(&framePath, "frame-path", "", "new comma-separated ordered list of stage names")
	cmd.Flags().StringVar(&restartPolicy, "restart-policy", "", "never|always|on_error|on_eos")

	return cmd
}

func newStreamsRemoveCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <stream_id>",
		Short: "Remove a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamsRequest(http.MethodDelete, *addr+"/streams/"+args[0], nil)
		},
	}
}

func streamsRequest(method, url string, body any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("failed to reach the Pipeless control surface")
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		fmt.Println(string(respBody))
		return nil
	}

	fmt.Printf("request was not successful, status code: %d\n", resp.StatusCode)
	fmt.Printf("error message: %s\n", string(respBody))
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}
