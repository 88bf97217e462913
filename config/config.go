package config

import (
	"encoding/json"
	"errors"
	"os"
)

type Transport struct {
	Port             int    `json:"port"`
	MaxFrameSize     int    `json:"max_frame_size"`
	WriteQueueSize   int    `json:"write_queue_size"`
	MaxRecvFrameSize uint32 `json:"max_recv_frame_size"`
	EncryptLevel     string `json:"encrypt_level"`
	HandshakeCancel  bool   `json:"handshake_cancel"`
}

type Http struct {
	HttpPort                 int    `json:"http_port"`
	UsingProxy               bool   `json:"using_proxy"`
	MaxRequestsPerIPInSecond uint64 `json:"max_requests_per_ip_in_second"`
}

type Config struct {
	Transport Transport `json:"transport"`
	Http      Http      `json:"http"`
}

func LoadFromFile(filePath string) (conf Config, err error) {
	conf.Transport.Port = 8584
	conf.Transport.MaxFrameSize = 4 * 1024 * 1024
	conf.Transport.WriteQueueSize = 1024
	conf.Transport.MaxRecvFrameSize = 2 * 1024 * 1024
	conf.Transport.EncryptLevel = "off"
	conf.Transport.HandshakeCancel = true

	conf.Http.HttpPort = 8987
	conf.Http.UsingProxy = false
	conf.Http.MaxRequestsPerIPInSecond = 50

	var fi os.FileInfo
	var bs []byte
	fi, err = os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return
		}

		// write config to file for user convenience if the file is not exist
		bs, err = json.MarshalIndent(conf, "", " ")
		_ = os.WriteFile(filePath, bs, 0660) // it is just helper. ignore errors

	} else {
		if fi.IsDir() {
			err = errors.New("config.json is directory")
			return
		}
		bs, err = os.ReadFile(filePath)
		if err != nil {
			return
		}
		err = json.Unmarshal(bs, &conf)
		if err != nil {
			return
		}
	}

	err = conf.Check()
	return
}

func (c *Config) Check() (err error) {
	if c.Transport.Port < 1 || c.Transport.Port > 65535 {
		err = errors.New("wrong Transport.Port")
		return
	}
	if c.Transport.MaxFrameSize < 16 || c.Transport.MaxFrameSize > 64*1024*1024 {
		err = errors.New("wrong Transport.MaxFrameSize")
		return
	}
	if c.Transport.WriteQueueSize < 1 || c.Transport.WriteQueueSize > 1024*1024 {
		err = errors.New("wrong Transport.WriteQueueSize")
		return
	}
	switch c.Transport.EncryptLevel {
	case "off", "desired", "required":
	default:
		err = errors.New("wrong Transport.EncryptLevel")
		return
	}
	if c.Http.HttpPort < 1 || c.Http.HttpPort > 65535 {
		err = errors.New("wrong Http.HttpPort")
		return
	}
	if c.Http.MaxRequestsPerIPInSecond < 1 {
		err = errors.New("wrong Http.MaxRequestsPerIPInSecond")
		return
	}
	return
}
