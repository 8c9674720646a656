package trade

import (
	"fmt"
	"sort"
	"sync"
)

// 阶段工厂，account 创建时按 id 动态解析
type (
	StrategyFactory func(id string, account *Account) Strategy
	RiskFactory     func(id string, account *Account) Risk
	BrokerFactory   func(id string, account *Account) Broker
	RobotFactory    func(id string, account *Account) Robot
)

var (
	registryMu        sync.RWMutex
	strategyFactories = map[string]StrategyFactory{}
	riskFactories     = map[string]RiskFactory{}
	brokerFactories   = map[string]BrokerFactory{}
	robotFactories    = map[string]RobotFactory{}
)

// RegisterStrategy 注册交易策略工厂，重复注册覆盖
func RegisterStrategy(id string, factory StrategyFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	strategyFactories[id] = factory
}

// RegisterRisk 注册风控工厂
func RegisterRisk(id string, factory RiskFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	riskFactories[id] = factory
}

// RegisterBroker 注册券商工厂
func RegisterBroker(id string, factory BrokerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	brokerFactories[id] = factory
}

// RegisterRobot 注册机器人工厂
func RegisterRobot(id string, factory RobotFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	robotFactories[id] = factory
}

// NewStrategy 按 id 创建策略实例
func NewStrategy(id string, account *Account) (Strategy, error) {
	registryMu.RLock()
	factory, ok := strategyFactories[id]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy not registered: %s", id)
	}
	return factory(id, account), nil
}

// NewRisk 按 id 创建风控实例
func NewRisk(id string, account *Account) (Risk, error) {
	registryMu.RLock()
	factory, ok := riskFactories[id]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("risk not registered: %s", id)
	}
	return factory(id, account), nil
}

// NewBroker 按 id 创建券商实例
func NewBroker(id string, account *Account) (Broker, error) {
	registryMu.RLock()
	factory, ok := brokerFactories[id]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("broker not registered: %s", id)
	}
	return factory(id, account), nil
}

// NewRobot 按 id 创建机器人实例
func NewRobot(id string, account *Account) (Robot, error) {
	registryMu.RLock()
	factory, ok := robotFactories[id]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("robot not registered: %s", id)
	}
	return factory(id, account), nil
}

// RegisteredIDs 已注册的阶段 id，排序输出，状态接口展示用
func RegisteredIDs() map[string][]string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := map[string][]string{}
	for id := range strategyFactories {
		out["strategy"] = append(out["strategy"], id)
	}
	for id := range riskFactories {
		out["risk"] = append(out["risk"], id)
	}
	for id := range brokerFactories {
		out["broker"] = append(out["broker"], id)
	}
	for id := range robotFactories {
		out["robot"] = append(out["robot"], id)
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out
}
