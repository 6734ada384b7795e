// Пакет osselot — доступ к реестру проанализированных пакетов Osselot:
// HTTP-клиент, файловый кэш дескрипторов и помощник поиска с
// in-memory кэшем списков версий.
package osselot

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Ошибки клиента Osselot.
var (
	// ErrBadStatus — удалённый сервис вернул неуспешный HTTP-статус.
	ErrBadStatus = errors.New("неуспешный статус ответа Osselot")
	// ErrInvalidContent — полученный дескриптор не является корректным XML.
	ErrInvalidContent = errors.New("некорректное содержимое дескриптора Osselot")
)

// Каталоги версий пакета в реестре имеют префикс "version-".
const versionDirPrefix = "version-"

// indexEntry — элемент directory-listing ответа (формат GitHub contents API).
type indexEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Client — HTTP-клиент реестра Osselot.
type Client struct {
	httpClient *http.Client
	apiURL     string
	indexURL   string
	logger     *slog.Logger
}

// NewClient создаёт клиент Osselot.
// apiURL — базовый URL REST API (дескрипторы), indexURL — directory-listing
// API проанализированных пакетов.
func NewClient(apiURL, indexURL string, timeout, connectTimeout time.Duration, logger *slog.Logger) *Client {
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
		},
	}

	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(apiURL, "/"),
		indexURL:   strings.TrimRight(indexURL, "/"),
		logger:     logger.With(slog.String("component", "osselot_client")),
	}
}

// ListVersions возвращает версии, известные реестру для пакета.
// Запрашивает listing каталога пакета; версиями считаются подкаталоги
// с префиксом "version-", префикс отбрасывается. Порядок — как в ответе.
func (c *Client) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	reqURL := c.indexURL + "/" + url.PathEscape(pkg)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса ListVersions: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос ListVersions для %s: %w", pkg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ListVersions %s: статус %d: %s",
			ErrBadStatus, pkg, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var entries []indexEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("декодирование listing для %s: %w", pkg, err)
	}

	var versions []string
	for _, e := range entries {
		if e.Type != "dir" {
			continue
		}
		if !strings.HasPrefix(e.Name, versionDirPrefix) {
			continue
		}
		versions = append(versions, strings.TrimPrefix(e.Name, versionDirPrefix))
	}
	return versions, nil
}

// FetchDescriptor запрашивает XML-дескриптор лицензионного анализа пакета
// заданной версии. GET {api}/xml/{pkg}/{ver}. Содержимое проверяется на
// синтаксическую корректность XML; некорректное отклоняется.
func (c *Client) FetchDescriptor(ctx context.Context, pkg, version string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/xml/%s/%s", c.apiURL, url.PathEscape(pkg), url.PathEscape(version))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса FetchDescriptor: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос FetchDescriptor %s/%s: %w", pkg, version, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: FetchDescriptor %s/%s: статус %d: %s",
			ErrBadStatus, pkg, version, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение дескриптора %s/%s: %w", pkg, version, err)
	}

	if err := validateXML(data); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrInvalidContent, pkg, version, err)
	}
	return data, nil
}

// validateXML проверяет, что данные — синтаксически корректный XML-документ.
func validateXML(data []byte) error {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	seenElement := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			seenElement = true
		}
	}
	if !seenElement {
		return errors.New("документ не содержит элементов")
	}
	return nil
}
