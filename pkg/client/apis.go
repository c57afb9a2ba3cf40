package client

import (
	"encoding/json"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/wle/pkg/config"
	"github.com/charlie0129/wle/pkg/types"
)

func (c *Client) GetMin() (int, error) {
	return c.getBound("/min", "minValue")
}

func (c *Client) GetMax() (int, error) {
	return c.getBound("/max", "maxValue")
}

func (c *Client) SetMin(v int) (int, error) {
	return c.setBound("/min", "minValue", v)
}

func (c *Client) SetMax(v int) (int, error) {
	return c.setBound("/max", "maxValue", v)
}

func (c *Client) getBound(path, key string) (int, error) {
	ret, err := c.Get(path)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to get %s", key)
	}
	return parseBoundResponse(ret, key)
}

func (c *Client) setBound(path, key string, v int) (int, error) {
	ret, err := c.Put(path, url.Values{"value": {strconv.Itoa(v)}})
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to set %s", key)
	}
	return parseBoundResponse(ret, key)
}

// parseBoundResponse decodes {"<key>":"<int>"}.
func parseBoundResponse(resp, key string) (int, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(resp), &m); err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to unmarshal %s", key)
	}
	s, ok := m[key]
	if !ok {
		return 0, pkgerrors.Errorf("unexpected response: %s", resp)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to parse %s", key)
	}
	return v, nil
}

func (c *Client) GetStatus() (*types.Status, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get status")
	}

	var s types.Status
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}

	return &s, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := yaml.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
