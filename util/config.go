package util

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const Name = "golden"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host            string `yaml:"host"`
		HttpPort        int    `yaml:"httpPort"`
		SiteUrl         string `yaml:"siteUrl"`
		DbPath          string `yaml:"dbPath"`
		ProcessInterval int    `yaml:"processInterval"`
		WithJournald    bool   `yaml:"withJournald"`
		WithPprof       bool   `yaml:"withPprof"`
	}
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	buf, err := os.ReadFile(ConfigFileName)
	if err != nil {
		log.Printf("Config file not found at %s, using embedded defaults", ConfigFileName)
		buf = embeddedConfig
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("GOLDEN_HOST")
	envHttpPort := os.Getenv("GOLDEN_HTTPPORT")
	envSiteUrl := os.Getenv("GOLDEN_SITEURL")
	envDbPath := os.Getenv("GOLDEN_DBPATH")
	envProcessInterval := os.Getenv("GOLDEN_PROCESS_INTERVAL")
	envWithJournald := os.Getenv("GOLDEN_WITH_JOURNALD")
	envWithPprof := os.Getenv("GOLDEN_WITH_PPROF")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envSiteUrl != "" {
		c.Conf.SiteUrl = envSiteUrl
	}

	if envDbPath != "" {
		c.Conf.DbPath = envDbPath
	}

	if envProcessInterval != "" {
		v, err := strconv.Atoi(envProcessInterval)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.ProcessInterval = v
	}

	if envWithJournald == "true" {
		c.Conf.WithJournald = true
	}

	if envWithPprof == "true" {
		c.Conf.WithPprof = true
	}

	if c.Conf.SiteUrl == "" {
		c.Conf.SiteUrl = fmt.Sprintf("http://%s:%d", c.Conf.Host, c.Conf.HttpPort)
	}
	c.Conf.SiteUrl = NormalizeFQID(c.Conf.SiteUrl)

	return c, nil
}
