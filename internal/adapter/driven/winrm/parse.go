package winrm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
)

// listServicesScript emits every service as {"Name":..,"Status":..}. Status is
// stringified on the host because Windows PowerShell 5.1 serializes enums as
// integers. -InputObject keeps a single-service result wrapped in an array.
const listServicesScript = `$ProgressPreference = 'SilentlyContinue'; ` +
	`ConvertTo-Json -Compress -InputObject @(Get-Service | ` +
	`Select-Object Name, @{Name='Status';Expression={$_.Status.ToString()}})`

type rawService struct {
	Name   string          `json:"Name"`
	Status json.RawMessage `json:"Status"`
}

// parseServiceList decodes the JSON emitted by listServicesScript. It accepts
// an array, a bare object (older hosts unwrap single-element arrays), or empty
// output for a host with no services.
func parseServiceList(stdout string) ([]model.ObservedService, error) {
	data := bytes.TrimSpace([]byte(stdout))
	// PowerShell may prefix output with a UTF-8 BOM.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if len(data) == 0 {
		return []model.ObservedService{}, nil
	}

	var raws []rawService
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode service array: %w", err)
		}
	case '{':
		var single rawService
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("decode service object: %w", err)
		}
		raws = []rawService{single}
	default:
		return nil, fmt.Errorf("unexpected output starting with %q", truncate(string(data), 32))
	}

	services := make([]model.ObservedService, 0, len(raws))
	for i, raw := range raws {
		if raw.Name == "" {
			return nil, fmt.Errorf("entry %d has no Name", i)
		}

		status, err := decodeStatus(raw.Status)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, raw.Name, err)
		}

		services = append(services, model.ObservedService{Name: raw.Name, Status: status})
	}

	return services, nil
}

// decodeStatus accepts the status as a string or as a ServiceControllerStatus code.
func decodeStatus(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	code, err := strconv.Atoi(string(raw))
	if err != nil {
		return "", fmt.Errorf("status %s is neither string nor integer", truncate(string(raw), 32))
	}

	if status, ok := model.ServiceStatusFromCode(code); ok {
		return string(status), nil
	}
	return strconv.Itoa(code), nil
}

// quotePS renders s as a single-quoted PowerShell literal. Inside single
// quotes only the quote itself is special and is escaped by doubling.
// PowerShell also treats typographic single quotes as quote characters.
func quotePS(s string) string {
	r := strings.NewReplacer("'", "''", "‘", "‘‘", "’", "’’", "‚", "‚‚", "‛", "‛‛")
	return "'" + r.Replace(s) + "'"
}

// controlScript builds a Start-Service or Stop-Service call for a single,
// already validated service name.
func controlScript(cmdlet, name string) string {
	return cmdlet + " -Name " + quotePS(name) + " -ErrorAction Stop"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
